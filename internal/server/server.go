package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/prankvzlom/sitelog/internal/allowlist"
	"github.com/prankvzlom/sitelog/internal/config"
	"github.com/prankvzlom/sitelog/internal/geo"
	"github.com/prankvzlom/sitelog/internal/handler"
	"github.com/prankvzlom/sitelog/internal/logger"
	"github.com/prankvzlom/sitelog/internal/observability"
	"github.com/prankvzlom/sitelog/internal/storage"
	"github.com/prankvzlom/sitelog/internal/telegram"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo    *echo.Echo
	Config  *config.Config
	logFile *storage.LogFile
	visits  *handler.PageVisits
	nrApp   *newrelic.Application
	log     zerolog.Logger
}

// New builds the Echo server and registers routes. The request log file is
// opened here and closed by Shutdown.
func New(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	list, err := allowlist.Parse(cfg.Relay.AllowedIPs)
	if err != nil {
		return nil, err
	}

	logFile, err := storage.OpenLogFile(storage.LogFileConfig{
		Path:       cfg.Relay.LogFile,
		MaxSizeMB:  cfg.Relay.LogMaxSizeMB,
		MaxBackups: cfg.Relay.LogMaxBackups,
	})
	if err != nil {
		return nil, err
	}

	nrApp, err := observability.NewApplication(cfg.Observability)
	if err != nil {
		// APM is optional; the site keeps serving without it
		log.Error().Err(err).Msg("new relic disabled")
		nrApp = nil
	}

	creds := cfg.Credentials()
	if !creds.Complete() {
		log.Error().Msg("telegram bot token, chat id or access token missing: POST /log will answer 500")
	}

	httpClient := observability.HTTPClient()

	var locator geo.Locator = geo.Disabled{}
	if cfg.Geo.Enabled {
		locator = geo.NewIPAPI(cfg.Geo.BaseURL, cfg.Geo.Timeout, httpClient, logger.Component(log, "geo"))
	}

	relay := telegram.NewClient(cfg.Telegram.APIBaseURL, creds.BotToken, creds.ChatID, cfg.Telegram.Timeout, httpClient)
	logHandler := &handler.LogHandler{
		Credentials: creds,
		AllowList:   list,
		Locator:     locator,
		Store:       logFile,
		Relay:       relay,
		Logger:      logger.Component(log, "log_handler"),
	}

	var visits *handler.PageVisits
	if cfg.Server.StaticDir != "" && cfg.Relay.NotifyVisits && creds.Complete() {
		visits = &handler.PageVisits{Relay: relay, Logger: logger.Component(log, "page_visits")}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if !cfg.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPDirect()
	}
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		requestLogger(logger.Component(log, "http")),
		observability.Middleware(nrApp),
	)
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType},
		}))
	}

	// the handler bounds the body itself once the method and address checks passed
	e.Any("/log", logHandler.Handle)
	e.GET("/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if cfg.Server.StaticDir != "" {
		var mw []echo.MiddlewareFunc
		if visits != nil {
			mw = append(mw, visits.Middleware())
		}
		site := echo.StaticDirectoryHandler(echo.MustSubFS(e.Filesystem, cfg.Server.StaticDir), false)
		e.GET("/*", site, mw...)
	}

	return &Server{Echo: e, Config: cfg, logFile: logFile, visits: visits, nrApp: nrApp, log: log}, nil
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// Start starts the HTTP server. Blocks until the context is cancelled or the server fails.
// On context cancel, Shutdown is called so the request log is closed cleanly.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("shutdown")
		}
	}()
	addr := ":" + s.Config.Server.Port
	s.log.Info().Str("addr", addr).Msg("listening")
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and the page
// visit notifications they started, and closes the request log.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	if s.visits != nil {
		s.visits.Wait()
	}
	observability.Shutdown(s.nrApp, 5*time.Second)
	if cerr := s.logFile.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
