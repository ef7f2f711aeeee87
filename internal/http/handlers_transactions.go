package http

import (
	"net/http"
	"strings"

	"moneymind/internal/core"
	"moneymind/internal/services"
)

type addTransactionRequest struct {
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Amount      amount               `json:"amount"`
	Date        string               `json:"date"`
	Description string               `json:"description"`
	AccountID   string               `json:"accountId"`
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	id, err := s.svc.AddTransaction(r.Context(), services.AddTransactionInput{
		Type:        req.Type,
		Category:    sanitizeInput(req.Category),
		Amount:      float64(req.Amount),
		Date:        strings.TrimSpace(req.Date),
		Description: sanitizeInput(req.Description),
		AccountID:   strings.TrimSpace(req.AccountID),
	})
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	Created(id).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseLimit(query)
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	txs, err := s.svc.ListTransactions(r.Context(), services.TransactionFilter{
		Type:  core.TransactionType(strings.TrimSpace(query.Get("type"))),
		Limit: limit,
	})
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(txs).Write(w)
}

func (s *Server) handleTransactionsByDateRange(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	txs, err := s.svc.ListTransactionsByDateRange(r.Context(),
		strings.TrimSpace(query.Get("start")),
		strings.TrimSpace(query.Get("end")))
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(txs).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	NoContent().Write(w)
}
