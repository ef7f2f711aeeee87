// Package memory is an in-process ledger backend. Rows live in maps keyed by
// id with a per-table insertion order used for newest-first listings.
package memory

import (
	"context"
	"fmt"
	"sync"

	"moneymind/internal/core"
	"moneymind/internal/ledger"
)

// table keeps rows by id and remembers insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) insert(id string, v T) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", core.ErrInvalidInput)
	}
	if _, ok := t.rows[id]; ok {
		return fmt.Errorf("%w: duplicate id %s", core.ErrInvalidInput, id)
	}
	t.rows[id] = v
	t.order = append(t.order, id)
	return nil
}

func (t *table[T]) remove(id string) {
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// newest walks rows from the most recently inserted, stopping after limit
// matches when limit > 0.
func (t *table[T]) newest(limit int, keep func(T) bool) []T {
	out := make([]T, 0)
	for i := len(t.order) - 1; i >= 0; i-- {
		v := t.rows[t.order[i]]
		if !keep(v) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type Store struct {
	mu           sync.RWMutex
	transactions *table[core.Transaction]
	goals        *table[core.FinancialGoal]
	investments  *table[core.InvestmentCalculation]
	nudges       *table[core.SmartNudge]
	accounts     *table[core.ConnectedAccount]
	profiles     map[string]core.UserProfile // by user id
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: newTable[core.Transaction](),
		goals:        newTable[core.FinancialGoal](),
		investments:  newTable[core.InvestmentCalculation](),
		nudges:       newTable[core.SmartNudge](),
		accounts:     newTable[core.ConnectedAccount](),
		profiles:     make(map[string]core.UserProfile),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions.insert(t.ID, t)
}

func (s *Store) ListTransactions(_ context.Context, userID string, q ledger.TransactionQuery) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactions.newest(q.EffectiveLimit(), func(t core.Transaction) bool {
		return t.UserID == userID && q.Matches(t)
	}), nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions.rows[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	s.transactions.remove(id)
	return nil
}

func (s *Store) InsertGoal(_ context.Context, g core.FinancialGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals.insert(g.ID, g)
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.FinancialGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals.rows[id]
	if !ok || g.UserID != userID {
		return core.FinancialGoal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	return g, nil
}

func (s *Store) UpdateGoalProgress(_ context.Context, userID, id string, current float64, status core.GoalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals.rows[id]
	if !ok || g.UserID != userID {
		return fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	g.CurrentAmount = current
	g.Status = status
	s.goals.rows[id] = g
	return nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.FinancialGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goals.newest(0, func(g core.FinancialGoal) bool { return g.UserID == userID }), nil
}

func (s *Store) InsertInvestment(_ context.Context, c core.InvestmentCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.investments.insert(c.ID, c)
}

func (s *Store) ListInvestments(_ context.Context, userID string) ([]core.InvestmentCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.investments.newest(0, func(c core.InvestmentCalculation) bool { return c.UserID == userID }), nil
}

func (s *Store) InsertNudge(_ context.Context, n core.SmartNudge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nudges.insert(n.ID, n)
}

func (s *Store) ListNudges(_ context.Context, userID string, limit int) ([]core.SmartNudge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nudges.newest(limit, func(n core.SmartNudge) bool { return n.UserID == userID }), nil
}

func (s *Store) MarkNudgeRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nudges.rows[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("nudge %s: %w", id, core.ErrNotFound)
	}
	n.IsRead = true
	s.nudges.rows[id] = n
	return nil
}

func (s *Store) InsertAccount(_ context.Context, a core.ConnectedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts.insert(a.ID, a)
}

func (s *Store) ListAccounts(_ context.Context, userID string, activeOnly bool) ([]core.ConnectedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts.newest(0, func(a core.ConnectedAccount) bool {
		return a.UserID == userID && (!activeOnly || a.IsActive)
	}), nil
}

// UpsertProfile keeps the original id and creation time when patching.
func (s *Store) UpsertProfile(_ context.Context, p core.UserProfile) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[p.UserID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	if p.ID == "" {
		return "", fmt.Errorf("%w: empty id", core.ErrInvalidInput)
	}
	p.FinancialGoals = append([]string(nil), p.FinancialGoals...)
	s.profiles[p.UserID] = p
	return p.ID, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.UserProfile{}, fmt.Errorf("profile: %w", core.ErrNotFound)
	}
	p.FinancialGoals = append([]string{}, p.FinancialGoals...)
	return p, nil
}
