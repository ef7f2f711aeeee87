package http

import (
	"context"
	"net/http"
	"time"

	"moneymind/internal/cache"
	"moneymind/internal/middleware/ratelimit"
	"moneymind/internal/middleware/security"
	"moneymind/internal/middleware/trace"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports 503 while the ledger cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
		return
	}
	OK(map[string]string{"status": "ready"}).Write(w)
}

type eventMetrics struct {
	Dropped int64 `json:"dropped"`
}

type metricsBody struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
	Spending  cache.Stats               `json:"spendingCache"`
	Events    eventMetrics              `json:"events"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body := metricsBody{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
		Spending:  s.spending.Stats(),
	}
	if s.broker != nil {
		body.Events.Dropped = s.broker.Dropped()
	}
	OK(body).Write(w)
}
