package handler

import (
	"github.com/gofiber/fiber/v3"

	"movie-recommendation-backend/internal/middleware"
)

// Routes groups the handlers mounted under /api.
type Routes struct {
	Movies      *MovieHandler
	Users       *UserHandler
	Collections *CollectionHandler
	Tokens      middleware.TokenParser
	// AuthLimit guards login and register; nil disables it.
	AuthLimit fiber.Handler
}

// Register mounts every API route on r.
func (rt Routes) Register(r fiber.Router) {
	requireAuth := middleware.RequireAuth(rt.Tokens)
	optionalAuth := middleware.OptionalAuth(rt.Tokens)
	authLimit := rt.AuthLimit
	if authLimit == nil {
		authLimit = func(c fiber.Ctx) error { return c.Next() }
	}

	a := r.Group("/auth")
	a.Post("/register", authLimit, rt.Users.Register)
	a.Post("/login", authLimit, rt.Users.Login)
	a.Post("/token/refresh", rt.Users.Refresh)
	a.Post("/logout", requireAuth, rt.Users.Logout)
	a.Get("/profile", requireAuth, rt.Users.Profile)
	a.Put("/profile", requireAuth, rt.Users.UpdateProfile)
	a.Post("/change-password", requireAuth, rt.Users.ChangePassword)
	a.Get("/preferences", requireAuth, rt.Users.Preferences)
	a.Put("/preferences", requireAuth, rt.Users.UpdatePreferences)

	// static segments go before /:id
	m := r.Group("/movies")
	m.Get("/health", rt.Movies.Health)
	m.Get("/trending", rt.Movies.Trending)
	m.Get("/popular", rt.Movies.Popular)
	m.Get("/top-rated", rt.Movies.TopRated)
	m.Get("/search", rt.Movies.Search)
	m.Get("/genres", rt.Movies.Genres)
	m.Get("/recommended", requireAuth, rt.Movies.Recommended)
	m.Get("/:id/similar", rt.Movies.Similar)
	m.Get("/:id", optionalAuth, rt.Movies.Detail)

	u := r.Group("/users", requireAuth)
	u.Get("/favorites", rt.Collections.ListFavorites)
	u.Post("/favorites", rt.Collections.AddFavorite)
	u.Delete("/favorites/:id", rt.Collections.RemoveFavorite)
	u.Get("/watchlist", rt.Collections.ListWatchlist)
	u.Post("/watchlist", rt.Collections.AddToWatchlist)
	u.Delete("/watchlist/:id", rt.Collections.RemoveFromWatchlist)
	u.Get("/ratings", rt.Collections.ListRatings)
	u.Post("/ratings", rt.Collections.RateMovie)
	u.Delete("/ratings/:id", rt.Collections.DeleteRating)
}
