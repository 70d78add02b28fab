package models

import "time"

// User represents a registered user.
type User struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	Bio            string          `json:"bio"`
	BirthDate      string          `json:"birth_date,omitempty"`
	FavoriteGenres []string        `json:"favorite_genres"`
	Preferences    *UserPreference `json:"preferences,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UserPreference stores the recommendation filters owned by a user.
type UserPreference struct {
	UserID             int64     `json:"-"`
	PreferredGenres    []int64   `json:"preferred_genres"`
	PreferredLanguages []string  `json:"preferred_languages"`
	MinRating          float64   `json:"min_rating"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsEmpty reports whether the preference carries no personalization signal.
func (p *UserPreference) IsEmpty() bool {
	return p == nil || (len(p.PreferredGenres) == 0 && len(p.PreferredLanguages) == 0 && p.MinRating == 0)
}

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Username       string   `json:"username" validate:"required,min=3,max=150"`
	Email          string   `json:"email" validate:"required,email,max=254"`
	Password       string   `json:"password" validate:"required,min=8,max=72"`
	Password2      string   `json:"password2" validate:"required,eqfield=Password"`
	Bio            string   `json:"bio" validate:"max=500"`
	BirthDate      string   `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	FavoriteGenres []string `json:"favorite_genres" validate:"max=20,dive,min=1,max=50"`
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// UpdateProfileRequest is a partial profile update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	Username       *string   `json:"username" validate:"omitempty,min=3,max=150"`
	Bio            *string   `json:"bio" validate:"omitempty,max=500"`
	BirthDate      *string   `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	FavoriteGenres *[]string `json:"favorite_genres" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// ChangePasswordRequest is the request body for changing a password.
type ChangePasswordRequest struct {
	OldPassword  string `json:"old_password" validate:"required"`
	NewPassword  string `json:"new_password" validate:"required,min=8,max=72"`
	NewPassword2 string `json:"new_password2" validate:"required,eqfield=NewPassword"`
}

// PreferenceRequest is the request body for updating preferences.
type PreferenceRequest struct {
	PreferredGenres    []int64  `json:"preferred_genres" validate:"max=30,dive,min=1"`
	PreferredLanguages []string `json:"preferred_languages" validate:"max=20,dive,len=2,alpha"`
	MinRating          float64  `json:"min_rating" validate:"min=0,max=10"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User    *User  `json:"user"`
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
	Message string `json:"message"`
}
