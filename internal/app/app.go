package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parishkit/livestream-service/internal/config"
	"github.com/parishkit/livestream-service/internal/handler"
	"github.com/parishkit/livestream-service/internal/platform"
	"github.com/parishkit/livestream-service/internal/repository"
	"github.com/parishkit/livestream-service/internal/service"
	"github.com/parishkit/livestream-service/internal/utils"
	"github.com/parishkit/livestream-service/internal/vault"
	"github.com/parishkit/livestream-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	key, err := cfg.Vault.KeyBytes()
	if err != nil {
		return nil, err
	}
	credentialVault, err := vault.New(key)
	if err != nil {
		return nil, err
	}

	sessionVerifier := utils.NewSessionVerifier(cfg.Auth.SessionSecret)
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	stateService := service.NewOAuthStateService(
		service.NewRedisStateStore(infra.Redis()),
		cfg.OAuth.StateTTL.Duration,
	)
	connectionService := service.NewConnectionService(repos.Connection, credentialVault)
	oauthService := service.NewOAuthService(stateService, connectionService, cfg.OAuth)
	livestreamService := service.NewLivestreamService(
		repos.Livestream,
		connectionService,
		oauthService,
		platform.NewFactory(nil),
		infra.Logger(),
	)

	connectionHandler := handler.NewConnectionHandler(oauthService, connectionService)
	livestreamHandler := handler.NewLivestreamHandler(livestreamService, infra.Thumbnails())

	router := gin.Default()
	router.Use(otelgin.Middleware("livestream-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, sessionVerifier, connectionHandler, livestreamHandler, rateLimiter, healthChecker, infra.MetricsHandler())

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
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	sessionVerifier *utils.SessionVerifier,
	connectionHandler *handler.ConnectionHandler,
	livestreamHandler *handler.LivestreamHandler,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	api.Use(handler.TenantMiddleware(sessionVerifier))
	{
		connections := api.Group("/connections")
		connections.Use(handler.RequireManagerRole())
		{
			connections.POST("/:platform/authorize",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.TenantBasedKey),
				connectionHandler.Authorize,
			)
			connections.GET("/:platform/callback", connectionHandler.Callback)
			connections.GET("", connectionHandler.List)
			connections.DELETE("/:platform", connectionHandler.Disconnect)
		}

		livestreams := api.Group("/livestreams")
		livestreams.Use(handler.RequireManagerRole())
		{
			livestreams.POST("", livestreamHandler.Create)
			livestreams.GET("", livestreamHandler.List)
			livestreams.GET("/:id", livestreamHandler.Get)
			livestreams.PATCH("/:id", livestreamHandler.Update)
			livestreams.DELETE("/:id", livestreamHandler.Delete)
			livestreams.POST("/:id/start", livestreamHandler.Start)
			livestreams.POST("/:id/stop", livestreamHandler.Stop)
			livestreams.POST("/:id/thumbnail", livestreamHandler.UploadThumbnail)
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
