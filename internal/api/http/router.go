package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-identity-service/internal/api/http/handlers"
	"github.com/spec-kit/clinic-identity-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/register/patient", cfg.Accounts.RegisterPatient)
	authGroup.Post("/register/specialist", cfg.Accounts.RegisterSpecialist)
	authGroup.Post("/login", cfg.RateLimiter.Limit("login"), cfg.Accounts.Login)
	authGroup.Get("/verify-email", cfg.Accounts.VerifyEmail)
	authGroup.Post("/resend-verification", cfg.RateLimiter.Limit("resend"), cfg.Accounts.ResendVerification)
	authGroup.Post("/forgot-password", cfg.RateLimiter.Limit("forgot"), cfg.Accounts.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Accounts.ResetPassword)

	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Accounts.Me)

	adminGroup := app.Group("/api/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	adminGroup.Get("/users", cfg.Admin.ListAccounts)
	adminGroup.Get("/users/:id", cfg.Admin.GetAccount)
	adminGroup.Put("/users/:id", cfg.Admin.UpdateAccount)
	adminGroup.Post("/users/:id/reset-password", cfg.Admin.SendPasswordReset)
	adminGroup.Post("/users/:id/send-verification", cfg.Admin.SendVerification)
}
