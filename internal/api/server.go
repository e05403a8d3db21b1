package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"swapScope/internal/replay"
	"swapScope/internal/storage"
)

// Config controls the HTTP host.
type Config struct {
	Listen          string
	ChainID         uint64
	Gzip            bool
	ShutdownTimeout time.Duration
}

// Server exposes one engine over HTTP. The engine is not safe for
// concurrent use, so mutations take the write lock and views the read lock.
type Server struct {
	cfg       Config
	mu        sync.RWMutex
	executor  *replay.Executor
	snapshots storage.SnapshotStore
	metrics   *metrics
	logger    *zap.Logger
	router    *gin.Engine
	savedSeq  uint64
}

// NewServer builds the router. snapshots may be nil.
func NewServer(cfg Config, executor *replay.Executor, snapshots storage.SnapshotStore, logger *zap.Logger) (*Server, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		executor:  executor,
		snapshots: snapshots,
		metrics:   m,
		logger:    logger,
		savedSeq:  executor.Engine().Seq(),
	}
	s.refreshGauges()
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if s.cfg.Gzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	r.GET("/health", s.APIHealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	r.POST("/pools", s.APICreatePool)
	r.GET("/pools", s.APIListPools)
	r.GET("/pools/:id", s.APIGetPool)
	r.POST("/pools/:id/liquidity", s.APIAddLiquidity)
	r.DELETE("/pools/:id/liquidity", s.APIRemoveLiquidity)
	r.POST("/pools/:id/swap", s.APISwap)
	r.GET("/pools/:id/positions/:owner", s.APIGetPosition)
	r.GET("/pool-id", s.APIPoolID)

	r.POST("/ledger/mint", s.APIMint)
	r.POST("/ledger/approve", s.APIApprove)
	r.GET("/ledger/balance", s.APIBalance)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("api listening", zap.String("addr", s.cfg.Listen))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown api: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve api: %w", err)
	}
}

// SaveSnapshot persists the registry and the in-memory ledger when the
// state moved since the last save.
func (s *Server) SaveSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	s.mu.RLock()
	engine := s.executor.Engine()
	seq := engine.Seq()
	if seq == s.savedSeq {
		s.mu.RUnlock()
		return nil
	}
	snapshot := storage.ExportSnapshot(s.cfg.ChainID, seq, engine.State())
	if mem := s.executor.Ledger(); mem != nil {
		snapshot.Ledger = storage.ExportLedger(mem)
	}
	s.mu.RUnlock()

	err := s.snapshots.SaveSnapshot(ctx, snapshot)
	s.metrics.snapshots.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	s.mu.Lock()
	if seq > s.savedSeq {
		s.savedSeq = seq
	}
	s.mu.Unlock()
	s.logger.Debug("snapshot saved", zap.Uint64("seq", seq), zap.Int("pools", len(snapshot.Pools)))
	return nil
}

// SnapshotLoop saves a snapshot every interval and once more on shutdown.
func (s *Server) SnapshotLoop(ctx context.Context, interval time.Duration) error {
	if s.snapshots == nil || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.SaveSnapshot(context.Background())
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx); err != nil {
				s.logger.Warn("periodic snapshot failed", zap.Error(err))
			}
		}
	}
}

func (s *Server) refreshGauges() {
	engine := s.executor.Engine()
	s.metrics.pools.Set(float64(len(engine.State().Pools())))
	s.metrics.seq.Set(float64(engine.Seq()))
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", code),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
