package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/vincentbai/browsetrace-server/internal/database"
	"github.com/vincentbai/browsetrace-server/internal/ingest"
	"github.com/vincentbai/browsetrace-server/internal/logger"
	"github.com/vincentbai/browsetrace-server/internal/snapshots"
)

type Options struct {
	MaxBodyBytes    int64
	AllowOrigins    []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TraceService    string // enables otelgin spans when set
}

type Server struct {
	db         *database.Database
	dispatcher *ingest.Dispatcher
	terms      *snapshots.Terms
	log        *logger.Logger
	address    string
	opts       Options
	server     *http.Server
}

func NewServer(db *database.Database, dispatcher *ingest.Dispatcher, terms *snapshots.Terms, log *logger.Logger, address string, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &Server{
		db:         db,
		dispatcher: dispatcher,
		terms:      terms,
		log:        log.With("service", "Server"),
		address:    address,
		opts:       opts,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	if s.opts.TraceService != "" {
		r.Use(otelgin.Middleware(s.opts.TraceService))
	}
	r.Use(RequestID())
	r.Use(RequestLogger(s.log))
	r.Use(CORS(s.opts.AllowOrigins))

	r.GET("/healthz", s.handleHealthz)
	r.POST("/save_user", s.handleSaveUser)
	r.POST("/save_data", s.handleSaveData)
	r.POST("/update_search_terms", s.handleSearchTerms)
	return r
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("BrowserTrace collector listening", "address", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("Shutting down server...")
		shutdownContext, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownContext)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info("Server exited")
	return nil
}
