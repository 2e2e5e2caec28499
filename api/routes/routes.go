package routes

import (
	"net/http"
	"time"

	"regtechhorizon/api/handler"
	"regtechhorizon/api/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Directory      *handler.DirectoryHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(e *echo.Echo, authHandler *handler.AuthHandler, directoryHandler *handler.DirectoryHandler, authMiddleware middleware.AuthMiddleware) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		Directory:      directoryHandler,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/auth/register", r.Auth.Register, r.AuthRate.Middleware())
	e.POST("/auth/activate", r.Auth.Activate, r.AuthRate.Middleware())
	e.GET("/auth/google", r.Auth.GoogleLogin, r.AuthRate.Middleware())
	e.GET("/auth/google/callback", r.Auth.GoogleCallback, r.AuthRate.Middleware())
	e.POST("/auth/complete-registration", r.Auth.CompleteRegistration, r.AuthRate.Middleware())
	e.POST("/auth/forgot-password", r.Auth.ForgotPassword, r.LoginRate.Middleware())
	e.POST("/auth/reset-password", r.Auth.ResetPassword, r.AuthRate.Middleware())
	e.POST("/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/auth/refresh", r.Auth.Refresh, r.AuthRate.Middleware())
	e.POST("/auth/logout", r.Auth.Logout, r.AuthMiddleware.RequireAuth)
	e.POST("/auth/logout-all", r.Auth.LogoutAll, r.AuthMiddleware.RequireAuth)

	e.GET("/me", r.Auth.Me, r.AuthMiddleware.RequireAuth)
	e.PUT("/me", r.Auth.UpdateProfile, r.AuthMiddleware.RequireAuth)
	e.PUT("/me/subscription", r.Auth.ChangeSubscription, r.AuthMiddleware.RequireAuth)

	e.GET("/directory/companies", r.Directory.ListCompanies)

	e.GET("/admin/accounts", r.Auth.AdminListAccounts, r.AuthMiddleware.RequireAuth, middleware.RequireRole("admin"))
	e.POST("/admin/accounts/:id/revoke-sessions", r.Auth.AdminRevokeAccountSessions, r.AuthMiddleware.RequireAuth, middleware.RequireRole("admin"))
}
