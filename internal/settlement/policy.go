package settlement

import (
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/validation"
)

// ISO 20022 status reason codes used on rejection
const (
	ReasonIncorrectAccount = "AC01"
	ReasonAmountExceeded   = "AM02"
	ReasonRegulatory       = "RR04"
)

// Decision is the terminal outcome for one payment
type Decision struct {
	Status models.PaymentStatus
	Reason string
}

// Policy decides ACSP or RJCT. Implementations must be deterministic in the
// payment's attributes and must not block.
type Policy interface {
	Decide(p models.Payment) Decision
}

// PolicyFunc adapts a plain function to Policy
type PolicyFunc func(p models.Payment) Decision

func (f PolicyFunc) Decide(p models.Payment) Decision { return f(p) }

// Rule returns a reason code when the payment must be rejected, "" otherwise
type Rule func(p models.Payment) string

// RulePolicy rejects with the reason of the first failing rule and accepts otherwise.
type RulePolicy struct {
	rules []Rule
}

func NewRulePolicy(rules ...Rule) *RulePolicy {
	return &RulePolicy{rules: rules}
}

func (rp *RulePolicy) Decide(p models.Payment) Decision {
	for _, rule := range rp.rules {
		if reason := rule(p); reason != "" {
			return Decision{Status: models.StatusRejected, Reason: reason}
		}
	}
	return Decision{Status: models.StatusAccepted}
}

func IdenticalAccountRule() Rule {
	return func(p models.Payment) string {
		if p.DebtorIBAN == p.CreditorIBAN {
			return ReasonIncorrectAccount
		}
		return ""
	}
}

func BlockedCountryRule(countries []string) Rule {
	blocked := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		blocked[c] = struct{}{}
	}
	return func(p models.Payment) string {
		for _, iban := range []string{p.DebtorIBAN, p.CreditorIBAN} {
			if _, ok := blocked[validation.IBANCountry(iban)]; ok {
				return ReasonRegulatory
			}
		}
		return ""
	}
}

// AmountLimits caps amount_minor per currency. Default applies to currencies
// without their own entry.
type AmountLimits struct {
	Default    int64
	ByCurrency map[models.Currency]int64
}

func (l AmountLimits) For(c models.Currency) int64 {
	if limit, ok := l.ByCurrency[c]; ok {
		return limit
	}
	return l.Default
}

func AmountLimitRule(limits AmountLimits) Rule {
	return func(p models.Payment) string {
		if p.AmountMinor > limits.For(p.Currency) {
			return ReasonAmountExceeded
		}
		return ""
	}
}

// DefaultPolicy is the compliance and limits check applied when nothing else is configured
func DefaultPolicy(limits AmountLimits, blockedCountries []string) *RulePolicy {
	return NewRulePolicy(
		IdenticalAccountRule(),
		BlockedCountryRule(blockedCountries),
		AmountLimitRule(limits),
	)
}
