package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneymind/internal/auth"
	"moneymind/internal/events"
	"moneymind/internal/log"
	"moneymind/internal/middleware/ratelimit"
	"moneymind/internal/middleware/security"
	"moneymind/internal/middleware/trace"
	"moneymind/internal/services"
)

// DefaultHeartbeat is how often an idle event stream sends a comment line.
const DefaultHeartbeat = 25 * time.Second

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Service  *services.FinanceService
	Broker   *events.Broker
	Spending *services.SpendingCache // optional, reported on /metrics
	Verifier *auth.Verifier

	RateLimitPerMinute int
	TrustedProxies     []string
	Heartbeat          time.Duration
}

type Server struct {
	http.Server
	svc       *services.FinanceService
	broker    *events.Broker
	spending  *services.SpendingCache
	tracer    *trace.Middleware
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	heartbeat time.Duration

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	detector := security.NewDetector()
	for _, cidr := range d.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			log.Default(log.ComponentSecurity).Warn("Ignoring trusted proxy", "error", err)
		}
	}
	s := &Server{
		svc:       d.Service,
		broker:    d.Broker,
		spending:  d.Spending,
		detector:  detector,
		tracer:    trace.NewMiddleware(detector.ExtractClientIP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		heartbeat: d.Heartbeat,
	}
	if s.heartbeat <= 0 {
		s.heartbeat = DefaultHeartbeat
	}

	var h http.Handler = s.routes()
	h = s.limiter.Middleware(s.rateLimitKey, s.onRateLimit)(h)
	h = auth.Middleware(d.Verifier)(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = log.Middleware(log.Default(log.ComponentHTTP))(h)
	h = s.tracer.Middleware(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	// No WriteTimeout: the event stream is long-lived and clears its own deadline.
	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals/{id}/progress", s.handleUpdateGoalProgress)

	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/range", s.handleTransactionsByDateRange)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/spending", s.handleSpendingByCategory)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("POST /api/investments", s.handleSaveInvestment)
	mux.HandleFunc("GET /api/investments", s.handleListInvestments)
	mux.HandleFunc("POST /api/investments/insights", s.handleInvestmentInsights)

	mux.HandleFunc("POST /api/nudges/generate", s.handleGenerateNudges)
	mux.HandleFunc("GET /api/nudges", s.handleListNudges)
	mux.HandleFunc("POST /api/nudges/{id}/read", s.handleMarkNudgeRead)

	mux.HandleFunc("PUT /api/profile", s.handleUpsertProfile)
	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("POST /api/accounts", s.handleAddAccount)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)

	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "no such route").Write(w)
	})
	return mux
}

// rateLimitKey buckets authenticated callers by user and everyone else by IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if userID, ok := auth.UserFrom(r.Context()); ok {
		return "user:" + userID
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
// Open event streams end when the broker is closed.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
