package internal

import (
	"instametrics/internal/controllers"
	"instametrics/internal/providers"
	"instametrics/internal/structures"
	"net/http"
)

// InitRoutes registers the /api surface. Everything except login sits
// behind the bearer token middleware.
func InitRoutes(
	insights *controllers.InsightsController,
	followers *controllers.FollowersController,
	tokens *controllers.TokenController,
	authController *controllers.AuthController,
	auth *providers.AuthMiddleware,
	conf *structures.Config,
) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()
	loginLimit := providers.RateLimitByIP(conf.RateLimit.LoginPerMinute)

	routers.Post("/api/auth/login", loginLimit(http.HandlerFunc(authController.Login)))
	routers.Get("/api/auth/validate", auth.Require(http.HandlerFunc(authController.Validate)))
	routers.Get("/api/insights", auth.Require(http.HandlerFunc(insights.Insights)))
	routers.Get("/api/followers", auth.Require(http.HandlerFunc(followers.Followers)))
	routers.Get("/api/followers/growth", auth.Require(http.HandlerFunc(followers.Growth)))
	routers.Get("/api/token", auth.Require(http.HandlerFunc(tokens.Tokens)))
	return routers
}
