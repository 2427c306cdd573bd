package validation

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

var currencyCodes = func() []string {
	codes := make([]string, 0, len(models.SupportedCurrencies))
	for _, c := range models.SupportedCurrencies {
		codes = append(codes, string(c))
	}
	return codes
}()

// IsSupportedCurrency reports whether the code is one payments may be created in
func IsSupportedCurrency(code string) bool {
	return govalidator.IsIn(code, currencyCodes...)
}

// ValidateCreateRequest runs every field check and reports all failures together.
// A nil return means the request may be turned into a payment.
func ValidateCreateRequest(req models.CreatePaymentRequest) error {
	verr := &apperrors.ValidationError{}

	if govalidator.IsNull(strings.TrimSpace(req.ExternalID)) {
		verr.Append("externalId required")
	}
	if !IsValidIBAN(req.DebtorIBAN) {
		verr.Append("debtorIban invalid")
	}
	if !IsValidIBAN(req.CreditorIBAN) {
		verr.Append("creditorIban invalid")
	}
	if !IsSupportedCurrency(req.Currency) {
		verr.Append("currency invalid")
	}
	if req.AmountMinor <= 0 {
		verr.Append("amountMinor invalid")
	}

	if verr.Empty() {
		return nil
	}
	return verr
}
