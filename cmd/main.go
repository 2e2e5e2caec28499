package main

import (
	"net/http"
	"os"
	"time"

	"regtechhorizon/api/handler"
	apiMiddleware "regtechhorizon/api/middleware"
	"regtechhorizon/api/routes"
	"regtechhorizon/config"
	"regtechhorizon/internal/repository"
	"regtechhorizon/internal/service"
	"regtechhorizon/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	db, err := config.ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	validate := validator.New()

	accessManager := utils.JWTManager{
		Secret:         []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}
	accessIssuer := service.JWTAccessIssuer{Manager: &accessManager}

	accountRepo := repository.NewAccountRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	var emailSender service.EmailSender
	if cfg.ResendAPIKey != "" && cfg.EmailFrom != "" {
		emailSender = service.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppBaseURL)
	} else {
		logger.Warn("email sender not configured, activation and reset emails disabled")
	}

	authService := service.NewAuthService(
		accountRepo,
		sessionRepo,
		auditRepo,
		emailSender,
		service.BcryptPasswordHasher{},
		accessIssuer,
		service.RealClock{},
		logger,
		service.AuthConfig{
			AccessTokenTTL:     cfg.AccessTokenTTL,
			RefreshTokenTTL:    cfg.RefreshTokenTTL,
			ActivationTokenTTL: cfg.ActivationTokenTTL,
			ResetTokenTTL:      cfg.ResetTokenTTL,
		},
	)
	directoryService := service.NewDirectoryService(accountRepo)

	authHandler := handler.NewAuthHandler(authService, validate)
	authHandler.AppBaseURL = cfg.AppBaseURL
	authHandler.CookieDomain = cfg.CookieDomain
	authHandler.SecureCookies = cfg.CookieSecure
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		authHandler.OAuth = service.NewGoogleOAuthProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		logger.Warn("google oauth not configured, federated sign-in disabled")
	}
	directoryHandler := handler.NewDirectoryHandler(directoryService)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(apiMiddleware.Metrics())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &accessManager}
	router := routes.NewRouter(app, authHandler, directoryHandler, authMiddleware)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", cfg.HTTPAddr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
