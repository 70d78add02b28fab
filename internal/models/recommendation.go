package models

import "time"

// PoolSource records where a recommendation candidate pool came from.
type PoolSource string

const (
	PoolSourceCatalog  PoolSource = "catalog"
	PoolSourceCache    PoolSource = "cache"
	PoolSourceDatabase PoolSource = "database"
	PoolSourceNone     PoolSource = "none"
)

// MovieRecommendation is the response shape for a recommended movie.
type MovieRecommendation struct {
	Movie
	Score              float64 `json:"score"`
	ContentScore       float64 `json:"content_score"`
	CollaborativeScore float64 `json:"collaborative_score"`
}

// RecommendationList is the fully ranked list cached per user.
type RecommendationList struct {
	Results      []MovieRecommendation `json:"results"`
	Personalized bool                  `json:"personalized"`
	Source       PoolSource            `json:"source"`
	Degraded     bool                  `json:"degraded"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// RecommendationPage is the paginated recommendation response.
type RecommendationPage struct {
	Page[MovieRecommendation]
	Personalized bool       `json:"personalized"`
	Source       PoolSource `json:"source"`
	Degraded     bool       `json:"degraded"`
	GeneratedAt  time.Time  `json:"generated_at"`
}
