package http

import (
	"fmt"
	"net/http"

	"moneymind/internal/core"
	"moneymind/internal/services"
)

type createGoalRequest struct {
	Name          string        `json:"name"`
	TargetAmount  amount        `json:"targetAmount"`
	CurrentAmount amount        `json:"currentAmount"`
	Deadline      string        `json:"deadline"`
	Priority      core.Priority `json:"priority"`
}

type goalProgressRequest struct {
	CurrentAmount *amount `json:"currentAmount"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	id, err := s.svc.CreateGoal(r.Context(), services.CreateGoalInput{
		Name:          sanitizeInput(req.Name),
		TargetAmount:  float64(req.TargetAmount),
		CurrentAmount: float64(req.CurrentAmount),
		Deadline:      req.Deadline,
		Priority:      req.Priority,
	})
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	Created(id).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.ListGoals(r.Context())
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	OK(goals).Write(w)
}

func (s *Server) handleUpdateGoalProgress(w http.ResponseWriter, r *http.Request) {
	var req goalProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	if req.CurrentAmount == nil {
		FromError(r.Context(), fmt.Errorf("%w: currentAmount is required", core.ErrInvalidInput)).Write(w)
		return
	}
	if err := s.svc.UpdateGoalProgress(r.Context(), r.PathValue("id"), float64(*req.CurrentAmount)); err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	NoContent().Write(w)
}
