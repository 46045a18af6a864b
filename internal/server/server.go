package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/auth"
	"github.com/raakeshmj/coreenginedb/internal/blob"
	"github.com/raakeshmj/coreenginedb/internal/circuitbreaker"
	"github.com/raakeshmj/coreenginedb/internal/config"
	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/events"
	"github.com/raakeshmj/coreenginedb/internal/journal"
	"github.com/raakeshmj/coreenginedb/internal/limiter"
	"github.com/raakeshmj/coreenginedb/internal/metrics"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
	"github.com/raakeshmj/coreenginedb/internal/payment"
	"github.com/raakeshmj/coreenginedb/internal/service"
	"github.com/raakeshmj/coreenginedb/internal/webhook"
)

type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	router *http.ServeMux

	blobs    blob.Store
	docs     *docstore.Store
	auth     *service.AuthService
	wallet   *service.WalletService
	journal  *journal.Journal
	activity *audit.BlobLogger
	auditLog audit.Logger
	verifier *webhook.Verifier
	crediter *webhook.Crediter
	payments *payment.Client
	metrics  *metrics.MetricsCollector

	handler http.Handler
}

// New wires every component on top of blobs. publisher may be nil.
func New(cfg *config.Config, blobs blob.Store, publisher events.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	docs := docstore.New(blobs, publisher, logger)
	sessions := auth.NewSessionManager(cfg.AdminToken, cfg.SessionTTL)
	limit := limiter.NewFixedWindowLimiter(blobs, cfg.RateWindow, cfg.RateLimit)
	cb := circuitbreaker.New(blobs, 3, 30*time.Second)

	activity := audit.NewBlobLogger(blobs, logger)
	var auditLog audit.Logger = activity
	if cfg.ActivityStdout {
		auditLog = audit.Tee{activity, audit.NewJSONLogger(os.Stdout)}
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   http.NewServeMux(),
		blobs:    blobs,
		docs:     docs,
		auth:     service.NewAuthService(docs, sessions, limit, logger),
		wallet:   service.NewWalletService(docs, logger),
		journal:  journal.New(blobs, docs, publisher),
		activity: activity,
		auditLog: auditLog,
		verifier: webhook.NewVerifier(cfg.StripeWebhookSecret),
		crediter: webhook.NewCrediter(docs, publisher, logger),
		payments: payment.NewClient(cfg.StripeSecret, cfg.StripeAPIBase, cb),
		metrics:  metrics.NewCollector(1000),
	}
	s.routes()

	// Order: Audit (outer) -> Metrics -> Recover -> Security -> BodyLimit -> Router
	s.handler = middleware.Chain(s.router,
		middleware.AuditMiddleware(s.auditLog),
		middleware.MetricsMiddleware(s.metrics),
		middleware.Recover(logger),
		middleware.SecureHeaders(middleware.SecurityConfig{AllowedOrigins: cfg.AllowedOrigins}),
		middleware.BodyLimit(middleware.MaxBodyBytes),
	)
	return s
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until the process receives SIGINT or SIGTERM, then drains
// in-flight requests.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.ServerPort,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", "port", s.cfg.ServerPort, "backend", s.cfg.BlobBackend)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("shutdown started", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
