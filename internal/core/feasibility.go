package core

import (
	"fmt"
	"math"
	"time"
)

type Feasibility string

const (
	FeasibilityHigh   Feasibility = "High"
	FeasibilityMedium Feasibility = "Medium"
	FeasibilityLow    Feasibility = "Low"
)

// savingsMonth is the fixed month length used when counting months to a deadline.
const savingsMonth = 30 * 24 * time.Hour

// FeasibilityThresholds bounds the suggested monthly savings for each tier.
// A suggestion at or under HighMax is High, at or under MediumMax is Medium.
type FeasibilityThresholds struct {
	HighMax   float64
	MediumMax float64
}

func DefaultFeasibilityThresholds() FeasibilityThresholds {
	return FeasibilityThresholds{HighMax: 25000, MediumMax: 50000}
}

func (t FeasibilityThresholds) Validate() error {
	if !finite(t.HighMax) || !finite(t.MediumMax) || t.HighMax < 0 {
		return invalid("feasibility thresholds must be finite and non-negative")
	}
	if t.HighMax > t.MediumMax {
		return invalid("feasibility high threshold exceeds medium threshold")
	}
	return nil
}

// Classify maps a suggested monthly saving onto a tier.
func (t FeasibilityThresholds) Classify(suggested float64) Feasibility {
	switch {
	case suggested <= t.HighMax:
		return FeasibilityHigh
	case suggested <= t.MediumMax:
		return FeasibilityMedium
	default:
		return FeasibilityLow
	}
}

// GoalPlan is what a goal needs to be reached by its deadline.
type GoalPlan struct {
	MonthsRemaining         int
	RemainingAmount         float64
	SuggestedMonthlySavings float64
	Feasibility             Feasibility
}

// MonthsRemaining counts 30-day months from now until the deadline, rounding up.
// Deadlines that are today or already past count as one month.
func MonthsRemaining(deadline Date, now time.Time) int {
	diff := deadline.Time.UnixMilli() - now.UnixMilli()
	months := int(math.Ceil(float64(diff) / float64(savingsMonth.Milliseconds())))
	if months < 1 {
		return 1
	}
	return months
}

// EvaluateGoal computes the monthly saving needed to close the gap between
// current and target by the deadline. A goal already reached yields a zero or
// negative suggestion and is classified High.
func EvaluateGoal(target, current float64, deadline Date, now time.Time, th FeasibilityThresholds) (GoalPlan, error) {
	if !finite(target) || !finite(current) {
		return GoalPlan{}, ErrNonFiniteNumeric
	}
	if err := deadline.Validate(); err != nil {
		return GoalPlan{}, err
	}
	months := MonthsRemaining(deadline, now)
	remaining := target - current
	suggested := math.Ceil(remaining / float64(months))
	if suggested == 0 {
		suggested = 0 // normalise -0
	}
	if !finite(suggested) {
		return GoalPlan{}, fmt.Errorf("%w: suggested savings", ErrNonFiniteNumeric)
	}
	return GoalPlan{
		MonthsRemaining:         months,
		RemainingAmount:         remaining,
		SuggestedMonthlySavings: suggested,
		Feasibility:             th.Classify(suggested),
	}, nil
}
