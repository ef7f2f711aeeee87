// Package ledger declares the storage ports the finance service depends on.
// Every method is scoped to a user id; rows owned by someone else behave as
// if they did not exist.
package ledger

import (
	"context"

	"moneymind/internal/core"
)

// DefaultTransactionLimit caps transaction listings when no limit is given.
const DefaultTransactionLimit = 50

// TransactionQuery narrows a transaction listing. Zero values mean no filter.
// From and To are inclusive ISO dates. A zero Limit means
// DefaultTransactionLimit and a negative one means no cap.
type TransactionQuery struct {
	Type  core.TransactionType
	From  string
	To    string
	Limit int
}

// Ports for outbound adapters. Listings are newest first.
type (
	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) error
		ListTransactions(ctx context.Context, userID string, q TransactionQuery) ([]core.Transaction, error)
		// DeleteTransaction returns core.ErrNotFound when the row is missing or foreign.
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	GoalStore interface {
		InsertGoal(ctx context.Context, g core.FinancialGoal) error
		GetGoal(ctx context.Context, userID, id string) (core.FinancialGoal, error)
		UpdateGoalProgress(ctx context.Context, userID, id string, current float64, status core.GoalStatus) error
		ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error)
	}

	InvestmentStore interface {
		InsertInvestment(ctx context.Context, c core.InvestmentCalculation) error
		ListInvestments(ctx context.Context, userID string) ([]core.InvestmentCalculation, error)
	}

	NudgeStore interface {
		InsertNudge(ctx context.Context, n core.SmartNudge) error
		ListNudges(ctx context.Context, userID string, limit int) ([]core.SmartNudge, error)
		MarkNudgeRead(ctx context.Context, userID, id string) error
	}

	AccountStore interface {
		InsertAccount(ctx context.Context, a core.ConnectedAccount) error
		ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]core.ConnectedAccount, error)
	}

	ProfileStore interface {
		// UpsertProfile creates the user's profile or patches the existing one,
		// returning the id of the stored row.
		UpsertProfile(ctx context.Context, p core.UserProfile) (string, error)
		// GetProfile returns core.ErrNotFound when the user has none.
		GetProfile(ctx context.Context, userID string) (core.UserProfile, error)
	}

	// Ledger is the full set of ports a backend provides.
	Ledger interface {
		TransactionStore
		GoalStore
		InvestmentStore
		NudgeStore
		AccountStore
		ProfileStore
		Ping(ctx context.Context) error
	}
)

// Unlimited is the TransactionQuery.Limit that disables the cap.
const Unlimited = -1

// EffectiveLimit resolves the row cap; -1 means no cap.
func (q TransactionQuery) EffectiveLimit() int {
	switch {
	case q.Limit == 0:
		return DefaultTransactionLimit
	case q.Limit < 0:
		return Unlimited
	}
	return q.Limit
}

// Matches reports whether t passes the type and date filters.
func (q TransactionQuery) Matches(t core.Transaction) bool {
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	d := t.Date.String()
	if q.From != "" && d < q.From {
		return false
	}
	if q.To != "" && d > q.To {
		return false
	}
	return true
}
