package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moneymind/internal/core"
	"moneymind/internal/ledger"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

var base = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func addTx(t *testing.T, r *SQLiteRepository, id, user string, typ core.TransactionType, d core.Date, at time.Duration) {
	t.Helper()
	err := r.InsertTransaction(context.Background(), core.Transaction{
		ID: id, UserID: user, Type: typ, Category: "Food", Amount: 12.5, Date: d,
		Description: "d", CreatedAt: base.Add(at),
	})
	if err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	r1, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	r1.Close()
	r2, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r2.Close()
	if err := r2.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestRunMigrationsReportsVersion(t *testing.T) {
	source := dsn(filepath.Join(t.TempDir(), "v.db"))
	for range 2 {
		version, err := RunMigrations(source)
		if err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if version != 1 {
			t.Fatalf("version = %d, want 1", version)
		}
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	addTx(t, r, "t1", "u1", core.Expense, core.NewDate(2025, 1, 31), 0)
	addTx(t, r, "t2", "u1", core.Income, core.NewDate(2025, 2, 1), time.Second)
	addTx(t, r, "t3", "u1", core.Expense, core.NewDate(2025, 2, 28), 2*time.Second)
	addTx(t, r, "t4", "u2", core.Expense, core.NewDate(2025, 2, 10), 3*time.Second)

	all, err := r.ListTransactions(ctx, "u1", ledger.TransactionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "t3" || all[2].ID != "t1" {
		t.Fatalf("unexpected order %+v", all)
	}
	if all[0].Date.String() != "2025-02-28" || all[0].Amount != 12.5 || !all[0].CreatedAt.Equal(base.Add(2*time.Second)) {
		t.Fatalf("fields not preserved: %+v", all[0])
	}

	feb, _ := r.ListTransactions(ctx, "u1", ledger.TransactionQuery{Type: core.Expense, From: "2025-02-01", To: "2025-02-31"})
	if len(feb) != 1 || feb[0].ID != "t3" {
		t.Fatalf("unexpected February expenses %+v", feb)
	}

	one, _ := r.ListTransactions(ctx, "u1", ledger.TransactionQuery{Limit: 1})
	if len(one) != 1 || one[0].ID != "t3" {
		t.Fatalf("unexpected limited result %+v", one)
	}

	if err := r.DeleteTransaction(ctx, "u2", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete: expected not found, got %v", err)
	}
	if err := r.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.DeleteTransaction(ctx, "u1", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestGoalsRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	g := core.FinancialGoal{
		ID: "g1", UserID: "u1", Name: "House", TargetAmount: 120000, Deadline: core.NewDate(2025, 8, 1),
		Priority: core.PriorityHigh, Feasibility: core.FeasibilityHigh, SuggestedMonthlySavings: 20000,
		Status: core.GoalActive, CreatedAt: base,
	}
	if err := r.InsertGoal(ctx, g); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetGoal(ctx, "u2", "g1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign get: expected not found, got %v", err)
	}
	if err := r.UpdateGoalProgress(ctx, "u2", "g1", 1, core.GoalActive); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update: expected not found, got %v", err)
	}
	if err := r.UpdateGoalProgress(ctx, "u1", "g1", 120000, core.GoalCompleted); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetGoal(ctx, "u1", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.GoalCompleted || got.CurrentAmount != 120000 || got.Feasibility != core.FeasibilityHigh ||
		got.SuggestedMonthlySavings != 20000 || got.Deadline.String() != "2025-08-01" {
		t.Fatalf("unexpected goal %+v", got)
	}
	list, _ := r.ListGoals(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("expected one goal, got %d", len(list))
	}
}

func TestNudgesAccountsInvestments(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for i, id := range []string{"n1", "n2", "n3"} {
		err := r.InsertNudge(ctx, core.SmartNudge{
			ID: id, UserID: "u1", Type: core.NudgeDebt, Message: "m", Priority: core.PriorityHigh,
			Actionable: true, CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	list, _ := r.ListNudges(ctx, "u1", 2)
	if len(list) != 2 || list[0].ID != "n3" || list[0].IsRead || !list[0].Actionable {
		t.Fatalf("unexpected nudges %+v", list)
	}
	if err := r.MarkNudgeRead(ctx, "u2", "n3"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := r.MarkNudgeRead(ctx, "u1", "n3"); err != nil {
		t.Fatal(err)
	}
	list, _ = r.ListNudges(ctx, "u1", 10)
	if len(list) != 3 || !list[0].IsRead {
		t.Fatalf("expected first nudge read: %+v", list)
	}

	_ = r.InsertAccount(ctx, core.ConnectedAccount{ID: "a1", UserID: "u1", AccountType: core.AccountBank, AccountName: "HDFC", Balance: -20.5, AccountNumber: "****1234", IsActive: true, CreatedAt: base})
	_ = r.InsertAccount(ctx, core.ConnectedAccount{ID: "a2", UserID: "u1", AccountType: core.AccountCard, AccountName: "Old", IsActive: false, CreatedAt: base})
	active, err := r.ListAccounts(ctx, "u1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Balance != -20.5 || active[0].AccountNumber != "****1234" {
		t.Fatalf("unexpected accounts %+v", active)
	}
	if all, _ := r.ListAccounts(ctx, "u1", false); len(all) != 2 {
		t.Fatalf("expected two accounts, got %d", len(all))
	}

	err = r.InsertInvestment(ctx, core.InvestmentCalculation{ID: "i1", UserID: "u1", Name: "FD", Type: "FD", Amount: 10000, Duration: 12, Rate: 7, MaturityAmount: 10700, Insight: "ok", ChartData: "[]", CreatedAt: base})
	if err != nil {
		t.Fatal(err)
	}
	inv, _ := r.ListInvestments(ctx, "u1")
	if len(inv) != 1 || inv[0].Duration != 12 || inv[0].Insight != "ok" {
		t.Fatalf("unexpected investments %+v", inv)
	}
}

func TestProfileUpsert(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if _, err := r.GetProfile(ctx, "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	id1, err := r.UpsertProfile(ctx, core.UserProfile{ID: "p1", UserID: "u1", FirstName: "Asha", FinancialGoals: []string{"house"}, OnboardingCompleted: true, CreatedAt: base, UpdatedAt: base})
	if err != nil {
		t.Fatal(err)
	}
	id2, err := r.UpsertProfile(ctx, core.UserProfile{ID: "p2", UserID: "u1", FirstName: "Ravi", MonthlyIncome: 90000, FinancialGoals: []string{"car", "trip"}, OnboardingCompleted: true, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if id1 != "p1" || id2 != "p1" {
		t.Fatalf("expected stable id, got %s %s", id1, id2)
	}
	p, err := r.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.FirstName != "Ravi" || p.MonthlyIncome != 90000 || len(p.FinancialGoals) != 2 || !p.CreatedAt.Equal(base) {
		t.Fatalf("unexpected profile %+v", p)
	}
}
