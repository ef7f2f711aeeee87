package http

import (
	"net/http"
	"strings"

	"moneymind/internal/core"
	"moneymind/internal/services"
)

func (s *Server) handleSpendingByCategory(w http.ResponseWriter, r *http.Request) {
	spending, err := s.svc.GetSpendingByCategory(r.Context(), strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(spending).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.GetSummary(r.Context(), strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(summary).Write(w)
}

// Investments

type investmentRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Amount         amount `json:"amount"`
	Duration       int    `json:"duration"`
	Rate           amount `json:"rate"`
	MaturityAmount amount `json:"maturityAmount"`
	Currency       string `json:"currency"`
	Insight        string `json:"aiInsights"`
	ChartData      string `json:"chartData"`
}

func (req investmentRequest) input() core.InvestmentInput {
	return core.InvestmentInput{
		Type:           strings.TrimSpace(req.Type),
		Amount:         float64(req.Amount),
		Duration:       req.Duration,
		Rate:           float64(req.Rate),
		MaturityAmount: float64(req.MaturityAmount),
		Currency:       strings.TrimSpace(req.Currency),
	}
}

func (s *Server) handleSaveInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	id, err := s.svc.SaveInvestmentCalculation(r.Context(), services.SaveInvestmentInput{
		Name:           sanitizeInput(req.Name),
		Type:           strings.TrimSpace(req.Type),
		Amount:         float64(req.Amount),
		Duration:       req.Duration,
		Rate:           float64(req.Rate),
		MaturityAmount: float64(req.MaturityAmount),
		Insight:        sanitizeInput(req.Insight),
		ChartData:      req.ChartData,
	})
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	Created(id).Write(w)
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListInvestmentCalculations(r.Context())
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(list).Write(w)
}

func (s *Server) handleInvestmentInsights(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	projection, err := s.svc.GenerateInvestmentInsights(r.Context(), req.input())
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(projection).Write(w)
}

// Nudges

func (s *Server) handleGenerateNudges(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.GenerateSmartNudges(r.Context()); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleListNudges(w http.ResponseWriter, r *http.Request) {
	nudges, err := s.svc.ListSmartNudges(r.Context())
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(nudges).Write(w)
}

func (s *Server) handleMarkNudgeRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.MarkNudgeAsRead(r.Context(), r.PathValue("id")); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	NoContent().Write(w)
}
