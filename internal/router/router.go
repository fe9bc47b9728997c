// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-token-service/internal/config"
	"github.com/iliyamo/auth-token-service/internal/handler"
	"github.com/iliyamo/auth-token-service/internal/middleware"
	"github.com/iliyamo/auth-token-service/internal/model"
	"github.com/iliyamo/auth-token-service/internal/token"
)

// Register wires every route. Credential endpoints under /v1/auth share the
// Redis rate limiter; protected endpoints verify the Bearer access
// credential and accept any known permission tier.
func Register(e *echo.Echo, a *handler.AuthHandler, verifier *token.Issuer, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limited := middleware.NewTokenBucket(rlCfg, rdb)

	// Unauthenticated credential flows.
	g := e.Group("/v1/auth", limited)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/recovery", a.RequestRecovery)
	g.GET("/recovery/:token", a.ValidateRecovery)
	g.POST("/recovery/:token", a.ConsumeRecovery)

	// Flows requiring a valid access credential.
	p := e.Group("/v1", middleware.RequireAccess(verifier),
		middleware.RequireRole(model.RoleStandard, model.RoleModerator, model.RoleAdministrator))
	p.POST("/auth/logout", a.Logout)
	p.POST("/auth/change-password", a.ChangePassword)
	p.GET("/sessions", a.Sessions)
}
