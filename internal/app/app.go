package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/forumhub/auth-service/internal/config"
	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/handler"
	"github.com/forumhub/auth-service/internal/repository"
	"github.com/forumhub/auth-service/internal/service"
	"github.com/forumhub/auth-service/internal/utils"
	"github.com/forumhub/auth-service/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
		cfg.JWT.ReauthTokenExpiry.Duration,
		cfg.JWT.ResetTokenExpiry.Duration,
	)

	blacklistService := service.NewTokenBlacklistService(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	secLog := service.NewSecurityLogService(repos.SecurityLog, infra.Logger())
	lockout := service.NewLockoutPolicy(repos.User, cfg.Security.LockoutThreshold, cfg.Security.LockoutMax.Duration)
	passwords := service.NewPasswordHistoryGuard(repos.User, cfg.Security.PasswordHistory, cfg.Security.PasswordMinAge.Duration)
	recovery := service.NewRecoveryFlow(repos.User, jwtManager, cfg.Security.BCryptCost, cfg.Security.MinQuestions, cfg.Security.MinAnswerLength)
	tokens := service.NewTokenService(repos.Token, jwtManager, blacklistService, cfg.JWT.RefreshTokenExpiry.Duration)
	reauth := service.NewReauthService(jwtManager)

	authService := service.NewAuthFacade(
		repos.User,
		tokens,
		lockout,
		passwords,
		recovery,
		reauth,
		blacklistService,
		secLog,
		jwtManager,
		cfg.Security.BCryptCost,
		cfg.JWT.ResetTokenExpiry.Duration,
		infra.Logger(),
	)

	authHandler := handler.NewAuthHandler(authService)
	adminHandler := handler.NewAdminHandler(authService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("auth-service"))
	if mp := infra.MeterProvider(); mp != nil {
		if metrics, err := observability.NewAuthMetrics(mp.Meter("auth-service")); err != nil {
			infra.Logger().Warn("Auth metrics disabled", zap.Error(err))
		} else {
			router.Use(metrics.Middleware())
		}
	}
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, adminHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	// Credential endpoints share one IP-keyed rate limit window.
	credentialLimit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
	)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register",
				handler.OptionalAuthMiddleware(authService),
				credentialLimit,
				authHandler.Register,
			)
			auth.POST("/login", credentialLimit, authHandler.Login)
			auth.POST("/oauth", credentialLimit, authHandler.OAuthLogin)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", handler.AuthMiddleware(authService), authHandler.GetMe)

			auth.POST("/reauth", handler.AuthMiddleware(authService), authHandler.Reauth)
			auth.POST("/change-password", handler.AuthMiddleware(authService), authHandler.ChangePassword)

			auth.GET("/security-questions", credentialLimit, authHandler.GetSecurityQuestions)
			auth.POST("/security-questions", handler.AuthMiddleware(authService), authHandler.SetSecurityQuestions)
			auth.POST("/verify-security-questions", credentialLimit, authHandler.VerifySecurityQuestions)
			auth.POST("/reset-password", credentialLimit, authHandler.ResetPassword)
		}

		admin := api.Group("/admin",
			handler.AuthMiddleware(authService),
			handler.RequireRole(domain.RoleAdmin, domain.RoleModerator),
		)
		{
			admin.PATCH("/users/:id/role", adminHandler.ChangeRole)
			admin.GET("/logs", adminHandler.ListLogs)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
