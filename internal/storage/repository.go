package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"moneymind/internal/core"
	"moneymind/internal/ledger"
	"moneymind/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements ledger.Ledger on a SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Ledger = (*SQLiteRepository)(nil)

// dsn enables WAL and a busy timeout so concurrent requests wait instead of
// failing with SQLITE_BUSY.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// notFound maps sql.ErrNoRows onto core.ErrNotFound.
func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func affected(what, id string, n int64, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// parseStoredDate trusts rows written by this package; a bad value is logged
// and yields the zero date rather than failing a whole listing.
func parseStoredDate(ctx context.Context, s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		log.Default(log.ComponentStorage).WarnContext(ctx, "Invalid date stored in database", "value", s)
	}
	return d
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	err := r.queries.CreateTransaction(ctx, Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        string(t.Type),
		Category:    t.Category,
		Amount:      t.Amount,
		Date:        t.Date.String(),
		Description: t.Description,
		AccountID:   sql.NullString{String: t.AccountID, Valid: t.AccountID != ""},
		CreatedAt:   unixNano(t.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	log.Default(log.ComponentStorage).DebugContext(ctx, "Transaction saved to SQLite", "id", t.ID, "type", t.Type, "category", t.Category)
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, q ledger.TransactionQuery) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		UserID: userID,
		Type:   string(q.Type),
		From:   q.From,
		To:     q.To,
		Limit:  int64(q.EffectiveLimit()),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = core.Transaction{
			ID:          row.ID,
			UserID:      row.UserID,
			Type:        core.TransactionType(row.Type),
			Category:    row.Category,
			Amount:      row.Amount,
			Date:        parseStoredDate(ctx, row.Date),
			Description: row.Description,
			AccountID:   row.AccountID.String,
			CreatedAt:   fromUnixNano(row.CreatedAt),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	return affected("delete transaction", id, n, err)
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.FinancialGoal) error {
	err := r.queries.CreateGoal(ctx, FinancialGoal{
		ID:                      g.ID,
		UserID:                  g.UserID,
		Name:                    g.Name,
		TargetAmount:            g.TargetAmount,
		CurrentAmount:           g.CurrentAmount,
		Deadline:                g.Deadline.String(),
		Priority:                string(g.Priority),
		Feasibility:             string(g.Feasibility),
		SuggestedMonthlySavings: g.SuggestedMonthlySavings,
		Status:                  string(g.Status),
		CreatedAt:               unixNano(g.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func goalFromRow(ctx context.Context, g FinancialGoal) core.FinancialGoal {
	return core.FinancialGoal{
		ID:                      g.ID,
		UserID:                  g.UserID,
		Name:                    g.Name,
		TargetAmount:            g.TargetAmount,
		CurrentAmount:           g.CurrentAmount,
		Deadline:                parseStoredDate(ctx, g.Deadline),
		Priority:                core.Priority(g.Priority),
		Feasibility:             core.Feasibility(g.Feasibility),
		SuggestedMonthlySavings: g.SuggestedMonthlySavings,
		Status:                  core.GoalStatus(g.Status),
		CreatedAt:               fromUnixNano(g.CreatedAt),
	}
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.FinancialGoal, error) {
	row, err := r.queries.GetGoal(ctx, id, userID)
	if err != nil {
		return core.FinancialGoal{}, notFound("get goal "+id, err)
	}
	return goalFromRow(ctx, row), nil
}

func (r *SQLiteRepository) UpdateGoalProgress(ctx context.Context, userID, id string, current float64, status core.GoalStatus) error {
	n, err := r.queries.UpdateGoalProgress(ctx, id, userID, current, string(status))
	return affected("update goal", id, n, err)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error) {
	rows, err := r.queries.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.FinancialGoal, len(rows))
	for i, row := range rows {
		out[i] = goalFromRow(ctx, row)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertInvestment(ctx context.Context, c core.InvestmentCalculation) error {
	err := r.queries.CreateInvestment(ctx, InvestmentCalculation{
		ID:             c.ID,
		UserID:         c.UserID,
		Name:           c.Name,
		Type:           c.Type,
		Amount:         c.Amount,
		Duration:       int64(c.Duration),
		Rate:           c.Rate,
		MaturityAmount: c.MaturityAmount,
		AiInsights:     c.Insight,
		ChartData:      c.ChartData,
		CreatedAt:      unixNano(c.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create investment calculation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context, userID string) ([]core.InvestmentCalculation, error) {
	rows, err := r.queries.ListInvestments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list investment calculations: %w", err)
	}
	out := make([]core.InvestmentCalculation, len(rows))
	for i, row := range rows {
		out[i] = core.InvestmentCalculation{
			ID:             row.ID,
			UserID:         row.UserID,
			Name:           row.Name,
			Type:           row.Type,
			Amount:         row.Amount,
			Duration:       int(row.Duration),
			Rate:           row.Rate,
			MaturityAmount: row.MaturityAmount,
			Insight:        row.AiInsights,
			ChartData:      row.ChartData,
			CreatedAt:      fromUnixNano(row.CreatedAt),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) InsertNudge(ctx context.Context, n core.SmartNudge) error {
	err := r.queries.CreateNudge(ctx, SmartNudge{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       string(n.Type),
		Message:    n.Message,
		Priority:   string(n.Priority),
		Actionable: n.Actionable,
		IsRead:     n.IsRead,
		CreatedAt:  unixNano(n.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create nudge: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListNudges(ctx context.Context, userID string, limit int) ([]core.SmartNudge, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.queries.ListNudges(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list nudges: %w", err)
	}
	out := make([]core.SmartNudge, len(rows))
	for i, row := range rows {
		out[i] = core.SmartNudge{
			ID:         row.ID,
			UserID:     row.UserID,
			Type:       core.NudgeType(row.Type),
			Message:    row.Message,
			Priority:   core.Priority(row.Priority),
			Actionable: row.Actionable,
			IsRead:     row.IsRead,
			CreatedAt:  fromUnixNano(row.CreatedAt),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) MarkNudgeRead(ctx context.Context, userID, id string) error {
	n, err := r.queries.MarkNudgeRead(ctx, id, userID)
	return affected("mark nudge read", id, n, err)
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.ConnectedAccount) error {
	err := r.queries.CreateAccount(ctx, ConnectedAccount{
		ID:            a.ID,
		UserID:        a.UserID,
		AccountType:   string(a.AccountType),
		AccountName:   a.AccountName,
		Balance:       a.Balance,
		AccountNumber: a.AccountNumber,
		IsActive:      a.IsActive,
		CreatedAt:     unixNano(a.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create connected account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]core.ConnectedAccount, error) {
	rows, err := r.queries.ListAccounts(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list connected accounts: %w", err)
	}
	out := make([]core.ConnectedAccount, len(rows))
	for i, row := range rows {
		out[i] = core.ConnectedAccount{
			ID:            row.ID,
			UserID:        row.UserID,
			AccountType:   core.AccountType(row.AccountType),
			AccountName:   row.AccountName,
			Balance:       row.Balance,
			AccountNumber: row.AccountNumber,
			IsActive:      row.IsActive,
			CreatedAt:     fromUnixNano(row.CreatedAt),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.UserProfile) (string, error) {
	goals := p.FinancialGoals
	if goals == nil {
		goals = []string{}
	}
	encoded, err := json.Marshal(goals)
	if err != nil {
		return "", fmt.Errorf("encode financial goals: %w", err)
	}
	id, err := r.queries.UpsertProfile(ctx, UserProfile{
		ID:                  p.ID,
		UserID:              p.UserID,
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		MonthlyIncome:       p.MonthlyIncome,
		Currency:            p.Currency,
		RiskTolerance:       p.RiskTolerance,
		FinancialGoals:      string(encoded),
		OnboardingCompleted: p.OnboardingCompleted,
		CreatedAt:           unixNano(p.CreatedAt),
		UpdatedAt:           unixNano(p.UpdatedAt),
	})
	if err != nil {
		return "", fmt.Errorf("upsert profile: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	row, err := r.queries.GetProfile(ctx, userID)
	if err != nil {
		return core.UserProfile{}, notFound("get profile", err)
	}
	var goals []string
	if err := json.Unmarshal([]byte(row.FinancialGoals), &goals); err != nil {
		return core.UserProfile{}, fmt.Errorf("decode financial goals: %w", err)
	}
	return core.UserProfile{
		ID:                  row.ID,
		UserID:              row.UserID,
		FirstName:           row.FirstName,
		LastName:            row.LastName,
		MonthlyIncome:       row.MonthlyIncome,
		Currency:            row.Currency,
		RiskTolerance:       row.RiskTolerance,
		FinancialGoals:      goals,
		OnboardingCompleted: row.OnboardingCompleted,
		CreatedAt:           fromUnixNano(row.CreatedAt),
		UpdatedAt:           fromUnixNano(row.UpdatedAt),
	}, nil
}
