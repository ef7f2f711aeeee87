package core

import "math/rand/v2"

type NudgeType string

const (
	NudgeOverspending NudgeType = "overspending"
	NudgeSaving       NudgeType = "saving"
	NudgeInvestment   NudgeType = "investment"
	NudgeDebt         NudgeType = "debt"
)

// NudgeTemplate is one canned advisory message.
type NudgeTemplate struct {
	Type       NudgeType
	Message    string
	Priority   Priority
	Actionable bool
}

var nudgeCatalog = [...]NudgeTemplate{
	{
		Type:       NudgeOverspending,
		Message:    "You've spent 15% more on dining out this month. Consider cooking at home 2-3 times this week to save ₹2,000.",
		Priority:   PriorityMedium,
		Actionable: true,
	},
	{
		Type:       NudgeSaving,
		Message:    "Great job! You're ahead of your savings goal by ₹5,000 this month. Consider investing the extra amount in a SIP.",
		Priority:   PriorityLow,
		Actionable: true,
	},
	{
		Type:       NudgeInvestment,
		Message:    "Your emergency fund is well-stocked. It's a good time to explore equity mutual funds for higher returns.",
		Priority:   PriorityHigh,
		Actionable: true,
	},
	{
		Type:       NudgeDebt,
		Message:    "Pay off your credit card balance of ₹15,000 before the due date to avoid interest charges of ₹2,250.",
		Priority:   PriorityHigh,
		Actionable: true,
	},
}

// NudgeSelector picks a template uniformly at random. It does not look at the
// user's transactions.
type NudgeSelector struct {
	intN func(n int) int
}

// NewNudgeSelector uses intN as the random source; nil means math/rand/v2.
func NewNudgeSelector(intN func(n int) int) NudgeSelector {
	return NudgeSelector{intN: intN}
}

func (s NudgeSelector) Pick() NudgeTemplate {
	intN := s.intN
	if intN == nil {
		intN = rand.IntN
	}
	i := intN(len(nudgeCatalog))
	if i < 0 || i >= len(nudgeCatalog) {
		i = 0
	}
	return nudgeCatalog[i]
}

// NewNudge builds an unread nudge for the user from a template.
func (t NudgeTemplate) NewNudge(userID string) SmartNudge {
	return SmartNudge{
		UserID:     userID,
		Type:       t.Type,
		Message:    t.Message,
		Priority:   t.Priority,
		Actionable: t.Actionable,
	}
}
