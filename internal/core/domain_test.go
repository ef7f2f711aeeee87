package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("got %s", d)
	}
	for _, bad := range []string{"", "2024-02-30", "29/02/2024", "2024-2-1"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected invalid input, got %v", bad, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2025-03-31"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !v.D.Equal(NewDate(2025, 3, 31).Time) {
		t.Fatalf("got %v", v.D)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2025-03-31"}` {
		t.Fatalf("got %s", b)
	}
	if err := json.Unmarshal([]byte(`{"d":"next tuesday"}`), &v); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Expense,
		Category:    "Food",
		Amount:      120,
		Date:        NewDate(2025, 1, 1),
		Description: "lunch",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = 0
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be allowed, got %v", err)
	}

	mut := func(f func(*Transaction)) Transaction {
		tx := good
		f(&tx)
		return tx
	}
	bads := []Transaction{
		mut(func(tx *Transaction) { tx.Type = "transfer" }),
		mut(func(tx *Transaction) { tx.Category = " " }),
		mut(func(tx *Transaction) { tx.Amount = -1 }),
		mut(func(tx *Transaction) { tx.Amount = math.NaN() }),
		mut(func(tx *Transaction) { tx.Date = Date{} }),
		mut(func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }),
	}
	for i, tx := range bads {
		if err := tx.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected invalid input, got %v", i, err)
		}
	}
}

func TestGoalValidate(t *testing.T) {
	good := FinancialGoal{Name: "Car", TargetAmount: 100, Deadline: NewDate(2026, 1, 1), Priority: PriorityHigh}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []FinancialGoal{
		{Name: "", TargetAmount: 100, Deadline: NewDate(2026, 1, 1), Priority: PriorityHigh},
		{Name: "Car", TargetAmount: 0, Deadline: NewDate(2026, 1, 1), Priority: PriorityHigh},
		{Name: "Car", TargetAmount: 100, CurrentAmount: -5, Deadline: NewDate(2026, 1, 1), Priority: PriorityHigh},
		{Name: "Car", TargetAmount: 100, Priority: PriorityHigh},
		{Name: "Car", TargetAmount: 100, Deadline: NewDate(2026, 1, 1), Priority: "urgent"},
	}
	for i, g := range bads {
		if err := g.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected invalid input, got %v", i, err)
		}
	}
}

func TestMaskAccountNumber(t *testing.T) {
	cases := map[string]string{
		"1234567890": "****7890",
		"****1234":   "****1234",
		"12":         "****12",
		"":           "",
	}
	for in, want := range cases {
		if got := MaskAccountNumber(in); got != want {
			t.Fatalf("MaskAccountNumber(%q) = %q, want %q", in, got, want)
		}
	}
}
