package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/circuitbreaker"
	"github.com/akio-byte/navaltutka/internal/config"
	"github.com/akio-byte/navaltutka/internal/handler"
	"github.com/akio-byte/navaltutka/internal/healthcheck"
	"github.com/akio-byte/navaltutka/internal/keypool"
	"github.com/akio-byte/navaltutka/internal/metrics"
	"github.com/akio-byte/navaltutka/internal/middleware"
	"github.com/akio-byte/navaltutka/internal/ratelimit"
	"github.com/akio-byte/navaltutka/internal/repository"
	"github.com/akio-byte/navaltutka/internal/search"
	"github.com/akio-byte/navaltutka/internal/service"
	"github.com/akio-byte/navaltutka/internal/snapshot"
	"github.com/akio-byte/navaltutka/internal/storage"
	"github.com/akio-byte/navaltutka/internal/upstream"
	"github.com/akio-byte/navaltutka/internal/validate"
)

const Version = "1.0.0"

// Options carries the optional collaborators. Nil storage disables the
// features that need it.
type Options struct {
	Logger   *zap.Logger
	Redis    *storage.RedisClient
	Postgres *storage.Postgres
	Provider upstream.ProviderFactory // nil uses Gemini
	Searcher handler.Searcher         // nil builds a client from config
}

// State is everything the handlers share. It is created once in New and
// never replaced.
type State struct {
	Limiter     ratelimit.Limiter
	Upstream    *upstream.Client
	Breaker     *circuitbreaker.CircuitBreaker
	Keys        *keypool.Pool
	Snapshots   *snapshot.Store
	Checker     *healthcheck.Checker
	Metrics     *metrics.Metrics
	RequestLogs *middleware.RequestLogSink
	Analytics   *service.AnalyticsService
}

type Server struct {
	router     *gin.Engine
	config     *config.Config
	logger     *zap.Logger
	state      *State
	opts       Options
	httpServer *http.Server

	aiHandler        *handler.AIHandler
	searchHandler    *handler.SearchHandler
	snapshotHandler  *handler.SnapshotHandler
	systemHandler    *handler.SystemHandler
	authHandler      *handler.AuthHandler
	analyticsHandler *handler.AnalyticsHandler
	authService      *service.AuthService
}

func New(cfg *config.Config, opts Options) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	state, err := newState(cfg, opts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: gin.New(),
		config: cfg,
		logger: opts.Logger,
		state:  state,
		opts:   opts,
	}

	s.initializeHandlers()
	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func newState(cfg *config.Config, opts Options) (*State, error) {
	logger := opts.Logger
	st := &State{Metrics: metrics.New()}

	limiter, err := ratelimit.NewLimiter(opts.Redis, cfg.RateLimit.Backend, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	st.Limiter = limiter

	keys := upstream.EnvKeys(cfg.Upstream.APIKey)
	var bencher upstream.KeyBencher
	if pool := cfg.Upstream.Keys(); len(pool) > 1 {
		strategy, err := keypool.NewStrategy(cfg.Upstream.KeyStrategy)
		if err != nil {
			return nil, err
		}
		st.Keys = keypool.New(keypool.Config{
			Keys:     pool,
			Strategy: strategy,
			Cooldown: cfg.Upstream.KeyCooldown,
			Logger:   logger,
		})
		keys = st.Keys.Key
		bencher = st.Keys
	}

	cb := cfg.Upstream.CircuitBreaker
	if cb.Enabled {
		st.Breaker = upstream.NewBreaker(cb.MaxFailures, cb.Cooldown, cb.HalfOpenSuccess, logger)
	}

	st.Upstream = upstream.NewClient(upstream.Options{
		Model:         cfg.Upstream.Model,
		Timeout:       cfg.Upstream.Timeout,
		StreamTimeout: cfg.Upstream.StreamTimeout,
		Keys:          keys,
		Bencher:       bencher,
		Factory:       opts.Provider,
		Breaker:       st.Breaker,
		Observer:      st.Metrics,
		Logger:        logger,
	})

	st.Snapshots = snapshot.NewStore(cfg.Snapshot.Path, cfg.Snapshot.TTL, logger)

	if opts.Postgres != nil {
		repo := repository.NewRequestLogRepository(opts.Postgres)
		st.RequestLogs = middleware.NewRequestLogSink(repo,
			cfg.RequestLog.BufferSize,
			cfg.RequestLog.BatchSize,
			cfg.RequestLog.FlushInterval,
			logger,
			st.Metrics)
		st.Analytics = service.NewAnalyticsService(repo)
	}

	st.Checker = healthcheck.NewChecker(healthcheck.Config{
		Dependencies: dependencies(st, keys, opts),
		Interval:     cfg.Health.Interval,
		Timeout:      cfg.Health.Timeout,
		MaxFailures:  cfg.Health.MaxFailures,
		Logger:       logger,
	})

	return st, nil
}

var errNoUpstreamKey = errors.New("no upstream api key configured")

func dependencies(st *State, keys upstream.KeyFunc, opts Options) []healthcheck.Dependency {
	deps := []healthcheck.Dependency{
		{
			Name:     "snapshot",
			Critical: true,
			Probe: func(context.Context) error {
				if !st.Snapshots.Readable() {
					return os.ErrNotExist
				}
				return nil
			},
		},
		{
			Name: "upstream_key",
			Probe: func(context.Context) error {
				if keys() == "" {
					return errNoUpstreamKey
				}
				return nil
			},
		},
	}
	if opts.Redis != nil {
		deps = append(deps, healthcheck.Dependency{Name: "redis", Probe: opts.Redis.Ping})
	}
	if opts.Postgres != nil {
		deps = append(deps, healthcheck.Dependency{Name: "database", Probe: opts.Postgres.Ping})
	}
	return deps
}

func (s *Server) initializeHandlers() {
	cfg := s.config
	v := validate.New()

	relaySvc := service.NewRelayService(s.state.Upstream, s.state.Snapshots, cfg.Upstream.ReportLanguage, s.logger)
	s.aiHandler = handler.NewAIHandler(relaySvc, v, s.state.Metrics, s.logger)

	searcher := s.opts.Searcher
	if searcher == nil {
		searcher = search.NewClient(cfg.Search.BaseURL, cfg.Search.APIKey, cfg.Search.Timeout, cfg.Search.MaxResults, s.logger)
	}
	s.searchHandler = handler.NewSearchHandler(searcher, v, s.logger)

	s.snapshotHandler = handler.NewSnapshotHandler(s.state.Snapshots, s.logger)

	sys := handler.SystemConfig{
		Version:        Version,
		LimiterBackend: cfg.RateLimit.Backend,
		Breaker:        s.state.Breaker,
		Keys:           s.state.Keys,
		Checker:        s.state.Checker,
	}
	if stats, ok := s.state.Limiter.(handler.LimiterStats); ok {
		sys.Limiter = stats
	}
	s.systemHandler = handler.NewSystemHandler(sys)

	s.authService = service.NewAuthService(cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	s.authHandler = handler.NewAuthHandler(s.authService)

	if s.state.Analytics != nil {
		s.analyticsHandler = handler.NewAnalyticsHandler(s.state.Analytics, cfg.RequestLog.Retention)
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	s.router.Use(middleware.Instrument(s.state.Metrics))
	if s.state.RequestLogs != nil {
		s.router.Use(middleware.RequestLogger(s.state.RequestLogs))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.systemHandler.Health)
	s.router.GET("/metrics", gin.WrapH(s.state.Metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/snapshot", s.snapshotHandler.Snapshot)
		api.GET("/brief", s.snapshotHandler.BriefExport)

		limited := api.Group("", middleware.RateLimit(s.state.Limiter, s.state.Metrics, s.logger))
		{
			limited.POST("/ai/chat", s.aiHandler.Chat)
			limited.POST("/ai/brief", s.aiHandler.Brief)
			limited.POST("/ai/horizon", s.aiHandler.Horizon)
			limited.POST("/ai/report", s.aiHandler.Report)
			limited.POST("/ai/rank", s.aiHandler.Rank)
			limited.POST("/ingest/search", s.searchHandler.Search)
		}
	}

	s.router.POST("/admin/login", s.authHandler.Login)

	admin := s.router.Group("/admin", middleware.RequireAuth(s.authService))
	{
		admin.GET("/status", s.systemHandler.Status)
		admin.POST("/circuit/reset", s.systemHandler.ResetCircuitBreaker)
		if s.analyticsHandler != nil {
			admin.GET("/analytics", s.analyticsHandler.GetSummary)
			admin.GET("/logs", s.analyticsHandler.GetLogs)
			admin.DELETE("/logs", s.analyticsHandler.Cleanup)
		}
	}
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Info("starting relay",
		zap.String("addr", addr),
		zap.String("environment", s.config.Server.Environment),
		zap.String("ratelimit_backend", s.config.RateLimit.Backend))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// State exposes the shared state for the background workers started by the
// caller.
func (s *Server) State() *State {
	return s.state
}
