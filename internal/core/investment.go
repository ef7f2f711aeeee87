package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Known instrument types. Any other non-empty type is treated as custom.
const (
	InvestmentFD     = "FD"
	InvestmentRD     = "RD"
	InvestmentSIP    = "SIP"
	InvestmentCustom = "custom"
)

type ReturnTier string

const (
	TierExcellent            ReturnTier = "excellent"
	TierModerate             ReturnTier = "moderate"
	TierConsiderAlternatives ReturnTier = "consider_alternatives"
)

// DefaultCurrencySymbol prefixes every amount in a narrative.
const DefaultCurrencySymbol = "₹"

// InvestmentInput describes a finished calculation. MaturityAmount is supplied
// by the caller, never derived here.
type InvestmentInput struct {
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	Duration       int     `json:"duration"` // months
	Rate           float64 `json:"rate"`
	MaturityAmount float64 `json:"maturityAmount"`
	Currency       string  `json:"currency,omitempty"`
}

// Projection is the derived view of an investment with its narrative.
type Projection struct {
	TotalReturns     float64    `json:"totalReturns"`
	AnnualizedReturn float64    `json:"annualizedReturn"`
	Tier             ReturnTier `json:"tier"`
	Narrative        string     `json:"narrative"`
}

var amountPrinter = message.NewPrinter(language.English)

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(3)))
}

// ClassifyReturn maps an annualized percentage onto a tier.
func ClassifyReturn(annualized float64) ReturnTier {
	switch {
	case annualized > 8:
		return TierExcellent
	case annualized > 6:
		return TierModerate
	default:
		return TierConsiderAlternatives
	}
}

// ProjectInvestment derives total and annualized returns and composes the
// narrative. Amount and duration must be strictly positive.
func ProjectInvestment(in InvestmentInput) (Projection, error) {
	if strings.TrimSpace(in.Type) == "" {
		return Projection{}, invalid("empty investment type")
	}
	if !finite(in.Amount) || in.Amount <= 0 {
		return Projection{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if in.Duration <= 0 {
		return Projection{}, ErrInvalidDuration
	}
	if !finite(in.Rate) || !finite(in.MaturityAmount) {
		return Projection{}, ErrNonFiniteNumeric
	}

	totalReturns := in.MaturityAmount - in.Amount
	annualized := (math.Pow(in.MaturityAmount/in.Amount, 12/float64(in.Duration)) - 1) * 100
	if !finite(annualized) {
		return Projection{}, ErrNonFiniteNumeric
	}
	tier := ClassifyReturn(annualized)

	cur := in.Currency
	if cur == "" {
		cur = DefaultCurrencySymbol
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your %s investment of %s%s over %d months at %s%% will mature to %s%s. ",
		in.Type, cur, formatAmount(in.Amount), in.Duration,
		strconv.FormatFloat(in.Rate, 'f', -1, 64), cur, formatAmount(in.MaturityAmount))

	switch in.Type {
	case InvestmentSIP:
		b.WriteString("With systematic investing, you're building wealth gradually while benefiting from rupee cost averaging. ")
	case InvestmentFD:
		b.WriteString("Fixed deposits offer guaranteed returns with capital protection. ")
	case InvestmentRD:
		b.WriteString("Recurring deposits help build disciplined saving habits with assured returns. ")
	}

	fmt.Fprintf(&b, "Your total returns will be %s%s with an effective annual return of %.2f%%. ",
		cur, formatAmount(totalReturns), annualized)

	switch tier {
	case TierExcellent:
		b.WriteString("This is an excellent return that beats inflation significantly.")
	case TierModerate:
		b.WriteString("This provides moderate returns that should keep pace with inflation.")
	default:
		b.WriteString("Consider exploring higher-yield options for better long-term wealth creation.")
	}

	return Projection{
		TotalReturns:     Round2(totalReturns),
		AnnualizedReturn: annualized,
		Tier:             tier,
		Narrative:        b.String(),
	}, nil
}
