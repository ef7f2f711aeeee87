package http

import (
	"net/http"
	"strings"

	"moneymind/internal/core"
	"moneymind/internal/services"
)

type profileRequest struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	MonthlyIncome  amount   `json:"monthlyIncome"`
	Currency       string   `json:"currency"`
	RiskTolerance  string   `json:"riskTolerance"`
	FinancialGoals []string `json:"financialGoals"`
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	goals := make([]string, 0, len(req.FinancialGoals))
	for _, g := range req.FinancialGoals {
		if g = sanitizeInput(g); g != "" {
			goals = append(goals, g)
		}
	}
	id, err := s.svc.CreateUserProfile(r.Context(), services.ProfileInput{
		FirstName:      sanitizeInput(req.FirstName),
		LastName:       sanitizeInput(req.LastName),
		MonthlyIncome:  float64(req.MonthlyIncome),
		Currency:       strings.TrimSpace(req.Currency),
		RiskTolerance:  strings.TrimSpace(req.RiskTolerance),
		FinancialGoals: goals,
	})
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(idBody{ID: id}).Write(w)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.GetUserProfile(r.Context())
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(profile).Write(w)
}

type accountRequest struct {
	AccountType   core.AccountType `json:"accountType"`
	AccountName   string           `json:"accountName"`
	Balance       float64          `json:"balance"`
	AccountNumber string           `json:"accountNumber"`
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	id, err := s.svc.AddConnectedAccount(r.Context(), services.AccountInput{
		AccountType:   req.AccountType,
		AccountName:   sanitizeInput(req.AccountName),
		Balance:       req.Balance,
		AccountNumber: strings.TrimSpace(req.AccountNumber),
	})
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	Created(id).Write(w)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.ListConnectedAccounts(r.Context())
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(accounts).Write(w)
}
