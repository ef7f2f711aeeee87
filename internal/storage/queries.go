package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row models, one per table.
type (
	Transaction struct {
		ID          string
		UserID      string
		Type        string
		Category    string
		Amount      float64
		Date        string
		Description string
		AccountID   sql.NullString
		CreatedAt   int64
	}

	FinancialGoal struct {
		ID                      string
		UserID                  string
		Name                    string
		TargetAmount            float64
		CurrentAmount           float64
		Deadline                string
		Priority                string
		Feasibility             string
		SuggestedMonthlySavings float64
		Status                  string
		CreatedAt               int64
	}

	InvestmentCalculation struct {
		ID             string
		UserID         string
		Name           string
		Type           string
		Amount         float64
		Duration       int64
		Rate           float64
		MaturityAmount float64
		AiInsights     string
		ChartData      string
		CreatedAt      int64
	}

	SmartNudge struct {
		ID         string
		UserID     string
		Type       string
		Message    string
		Priority   string
		Actionable bool
		IsRead     bool
		CreatedAt  int64
	}

	ConnectedAccount struct {
		ID            string
		UserID        string
		AccountType   string
		AccountName   string
		Balance       float64
		AccountNumber string
		IsActive      bool
		CreatedAt     int64
	}

	UserProfile struct {
		ID                  string
		UserID              string
		FirstName           string
		LastName            string
		MonthlyIncome       float64
		Currency            string
		RiskTolerance       string
		FinancialGoals      string
		OnboardingCompleted bool
		CreatedAt           int64
		UpdatedAt           int64
	}
)

const createTransaction = `INSERT INTO transactions
    (id, user_id, type, category, amount, date, description, account_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.UserID, t.Type, t.Category, t.Amount, t.Date, t.Description, t.AccountID, t.CreatedAt)
	return err
}

const listTransactions = `SELECT id, user_id, type, category, amount, date, description, account_id, created_at
FROM transactions
WHERE user_id = ?
  AND (? = '' OR type = ?)
  AND (? = '' OR date >= ?)
  AND (? = '' OR date <= ?)
ORDER BY created_at DESC, rowid DESC
LIMIT ?`

type ListTransactionsParams struct {
	UserID string
	Type   string
	From   string
	To     string
	Limit  int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.UserID, arg.Type, arg.Type, arg.From, arg.From, arg.To, arg.To, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.Category, &i.Amount, &i.Date,
			&i.Description, &i.AccountID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createGoal = `INSERT INTO financial_goals
    (id, user_id, name, target_amount, current_amount, deadline, priority,
     feasibility, suggested_monthly_savings, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, g FinancialGoal) error {
	_, err := q.db.ExecContext(ctx, createGoal,
		g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline, g.Priority,
		g.Feasibility, g.SuggestedMonthlySavings, g.Status, g.CreatedAt)
	return err
}

const goalColumns = `id, user_id, name, target_amount, current_amount, deadline, priority,
    feasibility, suggested_monthly_savings, status, created_at`

func scanGoal(s interface{ Scan(...any) error }) (FinancialGoal, error) {
	var g FinancialGoal
	err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Deadline,
		&g.Priority, &g.Feasibility, &g.SuggestedMonthlySavings, &g.Status, &g.CreatedAt)
	return g, err
}

const getGoal = `SELECT ` + goalColumns + ` FROM financial_goals WHERE id = ? AND user_id = ?`

func (q *Queries) GetGoal(ctx context.Context, id, userID string) (FinancialGoal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, id, userID))
}

const listGoals = `SELECT ` + goalColumns + ` FROM financial_goals
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListGoals(ctx context.Context, userID string) ([]FinancialGoal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FinancialGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const updateGoalProgress = `UPDATE financial_goals
SET current_amount = ?, status = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateGoalProgress(ctx context.Context, id, userID string, current float64, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateGoalProgress, current, status, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createInvestment = `INSERT INTO investment_calculations
    (id, user_id, name, type, amount, duration, rate, maturity_amount, ai_insights, chart_data, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateInvestment(ctx context.Context, c InvestmentCalculation) error {
	_, err := q.db.ExecContext(ctx, createInvestment,
		c.ID, c.UserID, c.Name, c.Type, c.Amount, c.Duration, c.Rate, c.MaturityAmount,
		c.AiInsights, c.ChartData, c.CreatedAt)
	return err
}

const listInvestments = `SELECT id, user_id, name, type, amount, duration, rate, maturity_amount,
    ai_insights, chart_data, created_at
FROM investment_calculations
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListInvestments(ctx context.Context, userID string) ([]InvestmentCalculation, error) {
	rows, err := q.db.QueryContext(ctx, listInvestments, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvestmentCalculation
	for rows.Next() {
		var i InvestmentCalculation
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Type, &i.Amount, &i.Duration, &i.Rate,
			&i.MaturityAmount, &i.AiInsights, &i.ChartData, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createNudge = `INSERT INTO smart_nudges
    (id, user_id, type, message, priority, actionable, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateNudge(ctx context.Context, n SmartNudge) error {
	_, err := q.db.ExecContext(ctx, createNudge,
		n.ID, n.UserID, n.Type, n.Message, n.Priority, n.Actionable, n.IsRead, n.CreatedAt)
	return err
}

const listNudges = `SELECT id, user_id, type, message, priority, actionable, is_read, created_at
FROM smart_nudges
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?`

func (q *Queries) ListNudges(ctx context.Context, userID string, limit int64) ([]SmartNudge, error) {
	rows, err := q.db.QueryContext(ctx, listNudges, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SmartNudge
	for rows.Next() {
		var i SmartNudge
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.Message, &i.Priority,
			&i.Actionable, &i.IsRead, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const markNudgeRead = `UPDATE smart_nudges SET is_read = 1 WHERE id = ? AND user_id = ?`

func (q *Queries) MarkNudgeRead(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markNudgeRead, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createAccount = `INSERT INTO connected_accounts
    (id, user_id, account_type, account_name, balance, account_number, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a ConnectedAccount) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		a.ID, a.UserID, a.AccountType, a.AccountName, a.Balance, a.AccountNumber, a.IsActive, a.CreatedAt)
	return err
}

const listAccounts = `SELECT id, user_id, account_type, account_name, balance, account_number, is_active, created_at
FROM connected_accounts
WHERE user_id = ? AND (? = 0 OR is_active = 1)
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]ConnectedAccount, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ConnectedAccount
	for rows.Next() {
		var i ConnectedAccount
		if err := rows.Scan(&i.ID, &i.UserID, &i.AccountType, &i.AccountName, &i.Balance,
			&i.AccountNumber, &i.IsActive, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertProfile = `INSERT INTO user_profiles
    (id, user_id, first_name, last_name, monthly_income, currency, risk_tolerance,
     financial_goals, onboarding_completed, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    first_name = excluded.first_name,
    last_name = excluded.last_name,
    monthly_income = excluded.monthly_income,
    currency = excluded.currency,
    risk_tolerance = excluded.risk_tolerance,
    financial_goals = excluded.financial_goals,
    onboarding_completed = excluded.onboarding_completed,
    updated_at = excluded.updated_at
RETURNING id`

func (q *Queries) UpsertProfile(ctx context.Context, p UserProfile) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, upsertProfile,
		p.ID, p.UserID, p.FirstName, p.LastName, p.MonthlyIncome, p.Currency, p.RiskTolerance,
		p.FinancialGoals, p.OnboardingCompleted, p.CreatedAt, p.UpdatedAt).Scan(&id)
	return id, err
}

const getProfile = `SELECT id, user_id, first_name, last_name, monthly_income, currency, risk_tolerance,
    financial_goals, onboarding_completed, created_at, updated_at
FROM user_profiles
WHERE user_id = ?`

func (q *Queries) GetProfile(ctx context.Context, userID string) (UserProfile, error) {
	var p UserProfile
	err := q.db.QueryRowContext(ctx, getProfile, userID).Scan(&p.ID, &p.UserID, &p.FirstName,
		&p.LastName, &p.MonthlyIncome, &p.Currency, &p.RiskTolerance, &p.FinancialGoals,
		&p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
