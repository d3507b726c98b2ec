// Package worker provides the HTTP worker service for dealpulse.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pipeboard/dealpulse/internal/analytics"
	"github.com/pipeboard/dealpulse/internal/cache"
	"github.com/pipeboard/dealpulse/internal/config"
	"github.com/pipeboard/dealpulse/internal/db"
	gormdb "github.com/pipeboard/dealpulse/internal/db/gorm"
	"github.com/pipeboard/dealpulse/internal/db/sqlite"
	"github.com/pipeboard/dealpulse/internal/engine"
	"github.com/pipeboard/dealpulse/internal/scoring"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// BatchHTTPTimeout applies to the daily batch endpoint, which can
	// sweep a large pipeline in one request.
	BatchHTTPTimeout = 10 * time.Minute

	// MaxRequestBody caps incoming request bodies.
	MaxRequestBody = 1 << 20
)

// closer releases a storage backend.
type closer interface {
	Close() error
}

// Service is the worker service orchestrator. The HTTP server starts
// immediately with health endpoints available while storage and engine
// initialization happens in the background.
type Service struct {
	version string
	config  *config.Config

	// Storage (set during async init)
	store     closer
	deals     db.DealStore
	events    db.EventStore
	history   db.HistoryStore
	queue     db.QueueStore
	analytics db.AnalyticsStore

	// Engine
	calc         *scoring.Calculator
	recalc       *engine.Recalculator
	orchestrator *engine.Orchestrator
	reporter     *analytics.ArchiveReporter
	scoreCache   *cache.ScoreCache

	// HTTP server
	router    *chi.Mux
	server    *http.Server
	startTime time.Time

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	// Initialization state (for deferred init)
	ready     atomic.Bool
	initError error
	initMu    sync.RWMutex
}

// NewService creates a new worker service with deferred initialization.
func NewService(version string) (*Service, error) {
	cfg := config.Get()
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:   version,
		config:    cfg,
		router:    chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	svc.setupMiddleware()
	svc.setupRoutes()

	go svc.initializeAsync()

	return svc, nil
}

// initializeAsync opens storage, runs migrations, and wires the engine.
func (s *Service) initializeAsync() {
	log.Info().Str("backend", s.config.Backend).Msg("Starting async initialization...")

	var (
		store     closer
		deals     db.DealStore
		events    db.EventStore
		history   db.HistoryStore
		queue     db.QueueStore
		archStore db.AnalyticsStore
	)

	switch s.config.Backend {
	case config.BackendPostgres:
		st, err := gormdb.NewStore(gormdb.Config{
			DSN:      s.config.PostgresDSN,
			MaxConns: s.config.MaxConns,
			LogLevel: gormlogger.Silent,
		})
		if err != nil {
			s.setInitError(fmt.Errorf("init postgres: %w", err))
			return
		}
		store = st
		deals = gormdb.NewDealStore(st)
		events = gormdb.NewEventStore(st)
		history = gormdb.NewHistoryStore(st)
		queue = gormdb.NewQueueStore(st)
		archStore = gormdb.NewAnalyticsStore(st)

	default:
		if err := config.EnsureDataDir(); err != nil {
			s.setInitError(fmt.Errorf("ensure data dir: %w", err))
			return
		}
		st, err := sqlite.NewStore(sqlite.StoreConfig{
			Path:     s.config.SQLitePath,
			MaxConns: s.config.MaxConns,
		})
		if err != nil {
			s.setInitError(fmt.Errorf("init sqlite: %w", err))
			return
		}
		store = st
		deals = sqlite.NewDealStore(st)
		events = sqlite.NewEventStore(st)
		history = sqlite.NewHistoryStore(st)
		queue = sqlite.NewQueueStore(st)
		archStore = sqlite.NewAnalyticsStore(st)
	}

	scoringCfg := models.DefaultScoringConfig()
	if s.config.BaseScore > 0 {
		scoringCfg.BaseScore = s.config.BaseScore
	}
	scoringCfg.StaleAfter = s.config.StaleAfter()

	calc := scoring.NewCalculator(scoringCfg)
	scoreCache := cache.New(s.config.RedisAddr, s.config.CacheTTL(), log.Logger)

	recalc := engine.NewRecalculator(deals, events, history, calc, scoreCache, log.Logger)
	processor := engine.NewProcessor(queue, recalc, s.config.QueueBatchSize, s.config.BatchConcurrency, log.Logger)
	sweeper := engine.NewSweeper(deals, recalc, scoringCfg.StaleAfter, s.config.SweepBatchSize, s.config.BatchConcurrency, log.Logger)

	s.initMu.Lock()
	s.store = store
	s.deals = deals
	s.events = events
	s.history = history
	s.queue = queue
	s.analytics = archStore
	s.calc = calc
	s.scoreCache = scoreCache
	s.recalc = recalc
	s.orchestrator = engine.NewOrchestrator(processor, sweeper, log.Logger)
	s.reporter = analytics.NewArchiveReporter(archStore, log.Logger)
	s.initMu.Unlock()

	s.ready.Store(true)
	log.Info().Msg("Async initialization complete - service ready")
}

// setInitError records an initialization error.
func (s *Service) setInitError(err error) {
	s.initMu.Lock()
	s.initError = err
	s.initMu.Unlock()
	log.Error().Err(err).Msg("Async initialization failed")
}

// GetInitError returns any initialization error.
func (s *Service) GetInitError() error {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.initError
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(SecurityHeaders)
	s.router.Use(MaxBodySize(MaxRequestBody))
	s.router.Use(RequireJSONContentType)
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	// Health check returns 200 immediately so orchestration can probe
	// during init. Readiness flips only when storage is up.
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Get("/api/version", s.handleVersion)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)
		r.Use(middleware.Timeout(DefaultHTTPTimeout))

		r.Post("/api/deals", s.handleCreateDeal)
		r.Get("/api/deals/{id}/score", s.handleGetScore)
		r.Get("/api/deals/{id}/history", s.handleGetHistory)
		r.Post("/api/deals/{id}/recalculate", s.handleRecalculate)
		r.Post("/api/deals/{id}/engagement", s.handleEngagement)
		r.Post("/api/deals/{id}/archive", s.handleArchive)
		r.Post("/api/events", s.handleIngestEvent)
		r.Post("/api/queue", s.handleEnqueue)
		r.Get("/api/analytics/archive", s.handleArchiveAnalytics)
	})

	// The batch run may legitimately outlive the default timeout.
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)
		r.Use(middleware.Timeout(BatchHTTPTimeout))

		r.Post("/api/batch/daily", s.handleDailyBatch)
	})
}

// Start begins serving HTTP requests and blocks until the server stops.
func (s *Service) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.config.WorkerPort)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", addr).Str("version", s.version).Msg("Worker service starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the service: drain HTTP, then close the
// cache and storage.
func (s *Service) Shutdown(ctx context.Context) error {
	log.Info().Msg("Worker service shutting down")
	s.cancel()

	var firstErr error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}

	s.initMu.RLock()
	store := s.store
	scoreCache := s.scoreCache
	s.initMu.RUnlock()

	if err := scoreCache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if store != nil {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
