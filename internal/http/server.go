package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/auth"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

const (
	DefaultRequestTimeout = 7 * time.Second
	readinessTimeout      = 2 * time.Second
	cacheEntries          = 500
	cacheCleanupInterval  = 10 * time.Minute
)

// Ledger is the engine surface served over HTTP.
type Ledger interface {
	Create(ctx context.Context, req core.CreateRequest, userID int64) (services.CreateResult, error)
	List(ctx context.Context, userID int64) ([]core.Transaction, error)
	ListPaged(ctx context.Context, userID int64, page, limit int) (core.Page, error)
	Get(ctx context.Context, userID, id int64) (core.Transaction, error)
	Update(ctx context.Context, userID, id int64, patch core.Patch) (core.Transaction, error)
	Delete(ctx context.Context, userID, id int64) error
	Dashboard(ctx context.Context, userID int64, month, year int) (core.MonthTotals, error)
	Projection(ctx context.Context, userID int64, month, year int) (core.MonthTotals, error)
	TopExpenseCategory(ctx context.Context, userID int64) (*core.CategoryTotal, error)
}

type Options struct {
	Addr     string
	Ledger   Ledger
	Verifier *auth.Verifier
	Logger   *log.Logger

	RateLimitPerMinute int
	// CacheTTL bounds how long aggregate views are served from memory.
	// Zero disables caching.
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	// Ready reports whether the backing store is reachable.
	Ready func(context.Context) error
}

type Server struct {
	http.Server

	ledger         Ledger
	logger         *log.StructuredLogger
	limiter        *ratelimit.Limiter
	detector       *security.Detector
	requestTimeout time.Duration
	ready          func(context.Context) error

	cacheManager *cache.Manager
	totals       cache.Cache[core.MonthTotals]
	rankings     cache.Cache[rankingEntry]

	shutdownOnce sync.Once
}

// rankingEntry lets a cached "no category" be told apart from a miss.
type rankingEntry struct {
	top *core.CategoryTotal
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	s := &Server{
		ledger:         opts.Ledger,
		logger:         log.NewStructuredLogger(logger),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		requestTimeout: timeout,
		ready:          opts.Ready,
		cacheManager:   cache.NewManager(),
	}
	if opts.CacheTTL > 0 {
		totals := cache.NewLRUCache[core.MonthTotals](cacheEntries, opts.CacheTTL)
		rankings := cache.NewLRUCache[rankingEntry](cacheEntries, opts.CacheTTL)
		s.cacheManager.Register(totals)
		s.cacheManager.Register(rankings)
		s.totals, s.rankings = totals, rankings
		s.cacheManager.StartCleanup(cacheCleanupInterval)
	}
	s.limiter.StartCleanup()

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.buildHandler(logger, opts.Verifier),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) buildHandler(logger *log.Logger, verifier *auth.Verifier) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	protect := func(h http.HandlerFunc) http.Handler {
		limited := s.limiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path)
			TooManyRequestsError().Write(w)
		})(h)
		return verifier.Middleware(s.handleAuthFailure)(limited)
	}

	mux.Handle("POST /transactions", protect(s.handleCreate))
	mux.Handle("GET /transactions", protect(s.handleList))
	mux.Handle("GET /transactions/{id}", protect(s.handleGet))
	mux.Handle("PATCH /transactions/{id}", protect(s.handleUpdate))
	mux.Handle("DELETE /transactions/{id}", protect(s.handleDelete))
	mux.Handle("GET /transactions/summary/{year}/{month}", protect(s.handleSummary))
	mux.Handle("GET /transactions/projection-monthly/{year}/{month}", protect(s.handleProjection))
	mux.Handle("GET /transactions/category-most-expensive", protect(s.handleTopCategory))

	var h http.Handler = mux
	h = s.rejectSuspicious(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.Recover(func(w http.ResponseWriter, r *http.Request) {
		InternalServerError().Write(w)
	})(h)
	h = log.Middleware(logger, trace.RequestIDFromRequest)(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger).Middleware(h)
	return h
}

func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
			BadRequestError("request rejected").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitKey counts authenticated requests per user and anything else per IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	msg := "invalid token"
	if errors.Is(err, auth.ErrMissingToken) {
		msg = "missing bearer token"
	}
	UnauthorizedError(msg).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.LogError(r.Context(), "Readiness check failed", err, log.ErrorTypeDatabase, log.ComponentHTTP, "readyz")
			NewJSONResponse().Status(http.StatusServiceUnavailable).
				Body(map[string]string{"status": "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
