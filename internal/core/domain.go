package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"

	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"

	AccountBank       AccountType = "bank"
	AccountCard       AccountType = "card"
	AccountInvestment AccountType = "investment"
)

// DateLayout is the ISO 8601 calendar form every date is stored and compared in.
const DateLayout = "2006-01-02"

type (
	TransactionType string
	Priority        string
	GoalStatus      string
	AccountType     string

	// Date is a calendar date at 00:00 UTC.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"userId"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Amount      float64         `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		AccountID   string          `json:"accountId,omitempty"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	FinancialGoal struct {
		ID                      string      `json:"id"`
		UserID                  string      `json:"userId"`
		Name                    string      `json:"name"`
		TargetAmount            float64     `json:"targetAmount"`
		CurrentAmount           float64     `json:"currentAmount"`
		Deadline                Date        `json:"deadline"`
		Priority                Priority    `json:"priority"`
		Feasibility             Feasibility `json:"feasibility"`
		SuggestedMonthlySavings float64     `json:"suggestedMonthlySavings"`
		Status                  GoalStatus  `json:"status"`
		CreatedAt               time.Time   `json:"createdAt"`
	}

	InvestmentCalculation struct {
		ID             string    `json:"id"`
		UserID         string    `json:"userId"`
		Name           string    `json:"name"`
		Type           string    `json:"type"`
		Amount         float64   `json:"amount"`
		Duration       int       `json:"duration"` // months
		Rate           float64   `json:"rate"`
		MaturityAmount float64   `json:"maturityAmount"`
		Insight        string    `json:"aiInsights"`
		ChartData      string    `json:"chartData"`
		CreatedAt      time.Time `json:"createdAt"`
	}

	SmartNudge struct {
		ID         string    `json:"id"`
		UserID     string    `json:"userId"`
		Type       NudgeType `json:"type"`
		Message    string    `json:"message"`
		Priority   Priority  `json:"priority"`
		Actionable bool      `json:"actionable"`
		IsRead     bool      `json:"isRead"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	ConnectedAccount struct {
		ID            string      `json:"id"`
		UserID        string      `json:"userId"`
		AccountType   AccountType `json:"accountType"`
		AccountName   string      `json:"accountName"`
		Balance       float64     `json:"balance"`
		AccountNumber string      `json:"accountNumber"`
		IsActive      bool        `json:"isActive"`
		CreatedAt     time.Time   `json:"createdAt"`
	}

	UserProfile struct {
		ID                  string    `json:"id"`
		UserID              string    `json:"userId"`
		FirstName           string    `json:"firstName"`
		LastName            string    `json:"lastName"`
		MonthlyIncome       float64   `json:"monthlyIncome"`
		Currency            string    `json:"currency"`
		RiskTolerance       string    `json:"riskTolerance"`
		FinancialGoals      []string  `json:"financialGoals"`
		OnboardingCompleted bool      `json:"onboardingCompleted"`
		CreatedAt           time.Time `json:"createdAt"`
		UpdatedAt           time.Time `json:"updatedAt"`
	}
)

// Error kinds surfaced by every operation. Specific failures wrap one of these.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
)

var (
	ErrInvalidDate      = invalid("invalid date")
	ErrInvalidAmount    = invalid("invalid amount")
	ErrInvalidType      = invalid("invalid transaction type")
	ErrInvalidPriority  = invalid("invalid priority")
	ErrEmptyCategory    = invalid("empty category")
	ErrEmptyName        = invalid("empty name")
	ErrDescriptionLong  = invalid("description too long (max 200 characters)")
	ErrInvalidAccount   = invalid("invalid account type")
	ErrInvalidDuration  = invalid("duration must be a positive number of months")
	ErrNonFiniteNumeric = invalid("calculation produced a non-finite result")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Failures wrap ErrInvalidInput.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date in ISO calendar form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (a AccountType) Valid() bool {
	switch a {
	case AccountBank, AccountCard, AccountInvestment:
		return true
	}
	return false
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !finite(t.Amount) || t.Amount < 0 {
		return ErrInvalidAmount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

func (g FinancialGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !finite(g.TargetAmount) || g.TargetAmount <= 0 {
		return fmt.Errorf("%w: target must be greater than zero", ErrInvalidAmount)
	}
	if !finite(g.CurrentAmount) || g.CurrentAmount < 0 {
		return fmt.Errorf("%w: current amount cannot be negative", ErrInvalidAmount)
	}
	if err := g.Deadline.Validate(); err != nil {
		return err
	}
	if !g.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

func (c InvestmentCalculation) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Type) == "" {
		return invalid("empty investment type")
	}
	if c.Duration <= 0 {
		return ErrInvalidDuration
	}
	for _, v := range []float64{c.Amount, c.Rate, c.MaturityAmount} {
		if !finite(v) {
			return ErrNonFiniteNumeric
		}
	}
	if c.Amount < 0 || c.MaturityAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a ConnectedAccount) Validate() error {
	if !a.AccountType.Valid() {
		return ErrInvalidAccount
	}
	if strings.TrimSpace(a.AccountName) == "" {
		return ErrEmptyName
	}
	if !finite(a.Balance) {
		return ErrInvalidAmount
	}
	return nil
}

func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return ErrEmptyName
	}
	if !finite(p.MonthlyIncome) || p.MonthlyIncome < 0 {
		return fmt.Errorf("%w: monthly income cannot be negative", ErrInvalidAmount)
	}
	return nil
}

// MaskAccountNumber keeps the last four characters and hides the rest.
// Numbers that are already masked are returned unchanged.
func MaskAccountNumber(n string) string {
	n = strings.TrimSpace(n)
	if n == "" || strings.HasPrefix(n, "*") {
		return n
	}
	if len(n) <= 4 {
		return "****" + n
	}
	return "****" + n[len(n)-4:]
}
