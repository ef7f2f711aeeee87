package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"moneymind/internal/auth"
	"moneymind/internal/core"
	"moneymind/internal/events"
	"moneymind/internal/ledger"
	"moneymind/internal/log"
)

// DefaultNudgeListLimit is how many nudges a listing returns.
const DefaultNudgeListLimit = 10

type FinanceServiceConfig struct {
	Thresholds     core.FeasibilityThresholds
	NudgeListLimit int
	Selector       core.NudgeSelector
	Spending       *SpendingCache // nil disables caching
	Now            func() time.Time
	NewID          func() string
}

func DefaultFinanceServiceConfig() FinanceServiceConfig {
	return FinanceServiceConfig{
		Thresholds:     core.DefaultFeasibilityThresholds(),
		NudgeListLimit: DefaultNudgeListLimit,
		Now:            time.Now,
		NewID:          uuid.NewString,
	}
}

// FinanceService runs every user-facing operation: it checks identity and
// ownership, derives computed fields, persists through the ledger and
// announces committed changes.
type FinanceService struct {
	store     ledger.Ledger
	publisher events.Publisher
	cfg       FinanceServiceConfig
	logger    *log.Logger
	audit     *log.StructuredLogger
}

func NewFinanceService(store ledger.Ledger, publisher events.Publisher, cfg FinanceServiceConfig) *FinanceService {
	def := DefaultFinanceServiceConfig()
	if cfg.Thresholds == (core.FeasibilityThresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if cfg.NudgeListLimit <= 0 {
		cfg.NudgeListLimit = def.NudgeListLimit
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = def.NewID
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	logger := log.Default(log.ComponentFinance)
	return &FinanceService{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		audit:     log.NewStructuredLogger(logger),
	}
}

// Ping reports whether the backing store is reachable.
func (s *FinanceService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *FinanceService) now() time.Time {
	return s.cfg.Now().UTC()
}

// announce publishes a committed change. Failures are logged only: the row is
// already stored.
func (s *FinanceService) announce(ctx context.Context, userID string, entity events.Entity, op events.Op, id string) {
	s.audit.LogMutation(ctx, string(op), string(entity), id, userID)
	c := events.Change{UserID: userID, Entity: entity, Op: op, ID: id, At: s.now()}
	if err := s.publisher.Publish(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithEntity(string(entity), id).
				WithError(err).
				WithErrorType(log.ErrorTypeNetwork).
				ToSlice()...)
	}
}

// Goals

type CreateGoalInput struct {
	Name          string        `json:"name"`
	TargetAmount  float64       `json:"targetAmount"`
	CurrentAmount float64       `json:"currentAmount"`
	Deadline      string        `json:"deadline"`
	Priority      core.Priority `json:"priority"`
}

// CreateGoal stores a goal together with its feasibility tier and suggested
// monthly savings, computed once here and never again.
func (s *FinanceService) CreateGoal(ctx context.Context, in CreateGoalInput) (string, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return "", err
	}
	deadline, err := core.ParseDate(in.Deadline)
	if err != nil {
		return "", err
	}
	now := s.now()
	plan, err := core.EvaluateGoal(in.TargetAmount, in.CurrentAmount, deadline, now, s.cfg.Thresholds)
	if err != nil {
		return "", err
	}
	g := core.FinancialGoal{
		ID:                      s.cfg.NewID(),
		UserID:                  userID,
		Name:                    strings.TrimSpace(in.Name),
		TargetAmount:            in.TargetAmount,
		CurrentAmount:           in.CurrentAmount,
		Deadline:                deadline,
		Priority:                in.Priority,
		Feasibility:             plan.Feasibility,
		SuggestedMonthlySavings: plan.SuggestedMonthlySavings,
		Status:                  goalStatus(in.CurrentAmount, in.TargetAmount),
		CreatedAt:               now,
	}
	if err := g.Validate(); err != nil {
		return "", err
	}
	if err := s.store.InsertGoal(ctx, g); err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	s.announce(ctx, userID, events.EntityGoal, events.OpCreated, g.ID)
	return g.ID, nil
}

func goalStatus(current, target float64) core.GoalStatus {
	if current >= target {
		return core.GoalCompleted
	}
	return core.GoalActive
}

// UpdateGoalProgress sets the goal's current amount and flips its status
// between active and completed. Feasibility and suggested savings keep their
// creation-time values.
func (s *FinanceService) UpdateGoalProgress(ctx context.Context, goalID string, current float64) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	if math.IsNaN(current) || math.IsInf(current, 0) || current < 0 {
		return fmt.Errorf("%w: current amount must be a non-negative number", core.ErrInvalidInput)
	}
	g, err := s.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateGoalProgress(ctx, userID, goalID, current, goalStatus(current, g.TargetAmount)); err != nil {
		return err
	}
	s.announce(ctx, userID, events.EntityGoal, events.OpUpdated, goalID)
	return nil
}

func (s *FinanceService) ListGoals(ctx context.Context) ([]core.FinancialGoal, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return []core.FinancialGoal{}, nil
	}
	return s.store.ListGoals(ctx, userID)
}

// Transactions

type AddTransactionInput struct {
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Amount      float64              `json:"amount"`
	Date        string               `json:"date"`
	Description string               `json:"description"`
	AccountID   string               `json:"accountId,omitempty"`
}

func (s *FinanceService) AddTransaction(ctx context.Context, in AddTransactionInput) (string, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return "", err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return "", err
	}
	t := core.Transaction{
		ID:          s.cfg.NewID(),
		UserID:      userID,
		Type:        in.Type,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		AccountID:   in.AccountID,
		CreatedAt:   s.now(),
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	if err := s.store.InsertTransaction(ctx, t); err != nil {
		return "", fmt.Errorf("add transaction: %w", err)
	}
	s.cfg.Spending.invalidate(userID)
	s.announce(ctx, userID, events.EntityTransaction, events.OpCreated, t.ID)
	return t.ID, nil
}

type TransactionFilter struct {
	Type  core.TransactionType
	Limit int
}

// ListTransactions returns the newest transactions first, 50 unless a limit
// is given.
func (s *FinanceService) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return []core.Transaction{}, nil
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, core.ErrInvalidType
	}
	if f.Limit < 0 {
		return nil, fmt.Errorf("%w: limit cannot be negative", core.ErrInvalidInput)
	}
	return s.store.ListTransactions(ctx, userID, ledger.TransactionQuery{Type: f.Type, Limit: f.Limit})
}

// ListTransactionsByDateRange returns every transaction dated between start
// and end inclusive.
func (s *FinanceService) ListTransactionsByDateRange(ctx context.Context, start, end string) ([]core.Transaction, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return []core.Transaction{}, nil
	}
	from, err := core.ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := core.ParseDate(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from.Time) {
		return nil, fmt.Errorf("%w: end date precedes start date", core.ErrInvalidInput)
	}
	return s.store.ListTransactions(ctx, userID, ledger.TransactionQuery{
		From:  from.String(),
		To:    to.String(),
		Limit: ledger.Unlimited,
	})
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.cfg.Spending.invalidate(userID)
	s.announce(ctx, userID, events.EntityTransaction, events.OpDeleted, id)
	return nil
}

// Spending

func (s *FinanceService) resolveMonth(month string) (core.Month, error) {
	if strings.TrimSpace(month) == "" {
		return core.CurrentMonth(s.now()), nil
	}
	return core.ParseMonth(month)
}

func (s *FinanceService) monthTransactions(ctx context.Context, userID string, m core.Month, typ core.TransactionType) ([]core.Transaction, error) {
	from, to := m.Range()
	return s.store.ListTransactions(ctx, userID, ledger.TransactionQuery{
		Type:  typ,
		From:  from,
		To:    to,
		Limit: ledger.Unlimited,
	})
}

// GetSpendingByCategory sums the month's expenses per category. An empty
// month means the current one.
func (s *FinanceService) GetSpendingByCategory(ctx context.Context, month string) ([]core.CategoryAmount, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return []core.CategoryAmount{}, nil
	}
	m, err := s.resolveMonth(month)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cfg.Spending.get(userID, m); ok {
		return cached, nil
	}
	gen := s.cfg.Spending.generation(userID)
	txs, err := s.monthTransactions(ctx, userID, m, core.Expense)
	if err != nil {
		return nil, fmt.Errorf("spending by category: %w", err)
	}
	out := core.SpendingByCategory(txs)
	s.cfg.Spending.set(userID, m, out, gen)
	return out, nil
}

// Summary is the month overview shown on the dashboard.
type Summary struct {
	Month      string                `json:"month"`
	Totals     core.Totals           `json:"totals"`
	ByCategory []core.CategoryAmount `json:"byCategory"`
	Goals      GoalCounts            `json:"goals"`
	Unread     int                   `json:"unreadNudges"`
}

type GoalCounts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

func (s *FinanceService) GetSummary(ctx context.Context, month string) (Summary, error) {
	m, err := s.resolveMonth(month)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Month: m.String(), ByCategory: []core.CategoryAmount{}}
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return sum, nil
	}

	txs, err := s.monthTransactions(ctx, userID, m, "")
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	sum.Totals = core.SummarizeTotals(txs)
	sum.ByCategory = core.SpendingByCategory(txs)

	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	for _, g := range goals {
		switch g.Status {
		case core.GoalCompleted:
			sum.Goals.Completed++
		case core.GoalActive:
			sum.Goals.Active++
		}
	}

	nudges, err := s.store.ListNudges(ctx, userID, s.cfg.NudgeListLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	for _, n := range nudges {
		if !n.IsRead {
			sum.Unread++
		}
	}
	return sum, nil
}

// Investments

type SaveInvestmentInput struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	Duration       int     `json:"duration"`
	Rate           float64 `json:"rate"`
	MaturityAmount float64 `json:"maturityAmount"`
	Insight        string  `json:"aiInsights"`
	ChartData      string  `json:"chartData"`
}

func (s *FinanceService) SaveInvestmentCalculation(ctx context.Context, in SaveInvestmentInput) (string, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return "", err
	}
	c := core.InvestmentCalculation{
		ID:             s.cfg.NewID(),
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Type:           strings.TrimSpace(in.Type),
		Amount:         in.Amount,
		Duration:       in.Duration,
		Rate:           in.Rate,
		MaturityAmount: in.MaturityAmount,
		Insight:        in.Insight,
		ChartData:      in.ChartData,
		CreatedAt:      s.now(),
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	if err := s.store.InsertInvestment(ctx, c); err != nil {
		return "", fmt.Errorf("save investment calculation: %w", err)
	}
	s.announce(ctx, userID, events.EntityInvestment, events.OpCreated, c.ID)
	return c.ID, nil
}

func (s *FinanceService) ListInvestmentCalculations(ctx context.Context) ([]core.InvestmentCalculation, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return []core.InvestmentCalculation{}, nil
	}
	return s.store.ListInvestments(ctx, userID)
}

// GenerateInvestmentInsights is pure computation and needs no identity.
func (s *FinanceService) GenerateInvestmentInsights(_ context.Context, in core.InvestmentInput) (core.Projection, error) {
	return core.ProjectInvestment(in)
}

// Nudges

// GenerateSmartNudges stores one randomly chosen canned nudge. The choice
// does not depend on the user's transactions.
func (s *FinanceService) GenerateSmartNudges(ctx context.Context) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	n := s.cfg.Selector.Pick().NewNudge(userID)
	n.ID = s.cfg.NewID()
	n.CreatedAt = s.now()
	if err := s.store.InsertNudge(ctx, n); err != nil {
		return fmt.Errorf("create nudge: %w", err)
	}
	s.announce(ctx, userID, events.EntityNudge, events.OpCreated, n.ID)
	return nil
}

func (s *FinanceService) ListSmartNudges(ctx context.Context) ([]core.SmartNudge, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return []core.SmartNudge{}, nil
	}
	return s.store.ListNudges(ctx, userID, s.cfg.NudgeListLimit)
}

// MarkNudgeAsRead flags one of the caller's nudges as read.
func (s *FinanceService) MarkNudgeAsRead(ctx context.Context, id string) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.store.MarkNudgeRead(ctx, userID, id); err != nil {
		return err
	}
	s.announce(ctx, userID, events.EntityNudge, events.OpUpdated, id)
	return nil
}

// Onboarding

type ProfileInput struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	MonthlyIncome  float64  `json:"monthlyIncome"`
	Currency       string   `json:"currency"`
	RiskTolerance  string   `json:"riskTolerance"`
	FinancialGoals []string `json:"financialGoals"`
}

// CreateUserProfile creates the caller's profile or overwrites the existing
// one, always marking onboarding complete.
func (s *FinanceService) CreateUserProfile(ctx context.Context, in ProfileInput) (string, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return "", err
	}
	now := s.now()
	p := core.UserProfile{
		ID:                  s.cfg.NewID(),
		UserID:              userID,
		FirstName:           strings.TrimSpace(in.FirstName),
		LastName:            strings.TrimSpace(in.LastName),
		MonthlyIncome:       in.MonthlyIncome,
		Currency:            in.Currency,
		RiskTolerance:       in.RiskTolerance,
		FinancialGoals:      in.FinancialGoals,
		OnboardingCompleted: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.UpsertProfile(ctx, p)
	if err != nil {
		return "", fmt.Errorf("create user profile: %w", err)
	}
	s.announce(ctx, userID, events.EntityProfile, events.OpUpdated, id)
	return id, nil
}

// GetUserProfile returns nil when the caller is anonymous or has no profile.
func (s *FinanceService) GetUserProfile(ctx context.Context) (*core.UserProfile, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return nil, nil
	}
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type AccountInput struct {
	AccountType   core.AccountType `json:"accountType"`
	AccountName   string           `json:"accountName"`
	Balance       float64          `json:"balance"`
	AccountNumber string           `json:"accountNumber"`
}

// AddConnectedAccount records an active account. Only the last four
// characters of the number are kept.
func (s *FinanceService) AddConnectedAccount(ctx context.Context, in AccountInput) (string, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return "", err
	}
	a := core.ConnectedAccount{
		ID:            s.cfg.NewID(),
		UserID:        userID,
		AccountType:   in.AccountType,
		AccountName:   strings.TrimSpace(in.AccountName),
		Balance:       in.Balance,
		AccountNumber: core.MaskAccountNumber(in.AccountNumber),
		IsActive:      true,
		CreatedAt:     s.now(),
	}
	if err := a.Validate(); err != nil {
		return "", err
	}
	if err := s.store.InsertAccount(ctx, a); err != nil {
		return "", fmt.Errorf("add connected account: %w", err)
	}
	s.announce(ctx, userID, events.EntityAccount, events.OpCreated, a.ID)
	return a.ID, nil
}

// ListConnectedAccounts returns the caller's active accounts.
func (s *FinanceService) ListConnectedAccounts(ctx context.Context) ([]core.ConnectedAccount, error) {
	userID, ok := auth.UserFrom(ctx)
	if !ok {
		return []core.ConnectedAccount{}, nil
	}
	return s.store.ListAccounts(ctx, userID, true)
}
