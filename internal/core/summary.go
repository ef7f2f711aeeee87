package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const monthLayout = "2006-01"

// CategoryAmount is an amount aggregated by category label.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Totals is a compact income/expense overview for a set of transactions.
type Totals struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
	Count    int     `json:"count"`
}

// Month is a calendar month in YYYY-MM form.
type Month struct {
	Year  int
	Month int // 1-12
}

// ParseMonth parses a four-digit year, a dash and a two-digit month.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(monthLayout) {
		return Month{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidInput, s)
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidInput, s)
	}
	return Month{Year: t.Year(), Month: int(t.Month())}, nil
}

// CurrentMonth returns the UTC calendar month containing now.
func CurrentMonth(now time.Time) Month {
	y, m, _ := now.UTC().Date()
	return Month{Year: y, Month: int(m)}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Range returns the inclusive ISO date bounds "YYYY-MM-01" and "YYYY-MM-31".
// The upper bound is day 31 for every month; no stored date sorts between the
// real last day and it.
func (m Month) Range() (start, end string) {
	return m.String() + "-01", m.String() + "-31"
}

// SpendingByCategory sums expense amounts per exact category label.
// Income transactions are ignored. The result is ordered by amount descending,
// then category ascending, and is empty (not nil) when nothing matches.
func SpendingByCategory(txs []Transaction) []CategoryAmount {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(decimal.NewFromFloat(t.Amount))
	}
	type entry struct {
		category string
		amount   decimal.Decimal
	}
	entries := make([]entry, 0, len(sums))
	for c, a := range sums {
		entries = append(entries, entry{c, a})
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].amount.Cmp(entries[j].amount); c != 0 {
			return c > 0
		}
		return entries[i].category < entries[j].category
	})
	out := make([]CategoryAmount, 0, len(entries))
	for _, e := range entries {
		out = append(out, CategoryAmount{Category: e.category, Amount: e.amount.InexactFloat64()})
	}
	return out
}

// SummarizeTotals returns income, expenses and their difference.
func SummarizeTotals(txs []Transaction) Totals {
	income, expenses := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case Income:
			income = income.Add(decimal.NewFromFloat(t.Amount))
		case Expense:
			expenses = expenses.Add(decimal.NewFromFloat(t.Amount))
		}
	}
	return Totals{
		Income:   income.InexactFloat64(),
		Expenses: expenses.InexactFloat64(),
		Net:      income.Sub(expenses).InexactFloat64(),
		Count:    len(txs),
	}
}
