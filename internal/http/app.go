package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"agencydesk_backend/internal/http/router"
	"agencydesk_backend/platform/config"
	"agencydesk_backend/platform/httpkit"
	"agencydesk_backend/platform/logger"
)

// App is the assembled HTTP server.
type App struct {
	server *http.Server
	log    *logger.Logger
}

// AppConfig is the slice of configuration the HTTP layer needs.
type AppConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// NewApp builds the engine, mounts every module under the authenticated
// /api/v1 group and wraps it in an http.Server.
func NewApp(cfg AppConfig, log *logger.Logger, modules ...Module) *App {
	engine := router.New(cfg, log)

	limiter := httpkit.NewIPRateLimiter(rate.Limit(20), 40)

	public := engine.Group("/")
	api := engine.Group("/api/v1")
	api.Use(limiter.Middleware(log))
	api.Use(httpkit.AuthRequired(cfg.GetJWTAccessSecret()))

	rc := &RouterContext{API: api, Public: public}
	for _, m := range modules {
		m.RegisterRoutes(rc)
		log.Info("module registered", "module", m.Name())
	}

	return &App{
		server: &http.Server{
			Addr:              cfg.GetHTTPAddr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.log.Info("http server stopped")
	return nil
}
