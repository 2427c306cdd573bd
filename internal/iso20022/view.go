// Package iso20022 renders ledger payments as ISO 20022 XML documents.
//
// Every message is built from the same PaymentView, so identifiers, amounts,
// currencies and status codes agree across all messages for one payment.
package iso20022

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/payment-core/internal/models"
)

const isoDateTime = "2006-01-02T15:04:05Z07:00"

// PaymentView is the message-neutral field set every renderer maps from.
type PaymentView struct {
	PaymentID     string
	EndToEndID    string
	ExternalID    string
	DebtorIBAN    string
	CreditorIBAN  string
	Currency      string
	Amount        decimal.Decimal
	Status        models.PaymentStatus
	Reason        string
	CreatedAt     string
	DecidedAt     string
	ExecutionDate string
}

// MajorAmount converts minor units to the currency's major unit
func MajorAmount(amountMinor int64, currency models.Currency) decimal.Decimal {
	return decimal.New(amountMinor, -currency.MinorUnits())
}

func NewPaymentView(p models.Payment) PaymentView {
	return PaymentView{
		PaymentID:     p.ID,
		EndToEndID:    p.EndToEndID,
		ExternalID:    p.ExternalID,
		DebtorIBAN:    p.DebtorIBAN,
		CreditorIBAN:  p.CreditorIBAN,
		Currency:      string(p.Currency),
		Amount:        MajorAmount(p.AmountMinor, p.Currency),
		Status:        p.Status,
		Reason:        p.StatusReason,
		CreatedAt:     formatDateTime(p.CreatedAt),
		DecidedAt:     formatDateTime(p.UpdatedAt),
		ExecutionDate: p.RequestedExecutionDate,
	}
}

// AmountText renders the amount with exactly the currency's minor-unit digits
func (v PaymentView) AmountText() string {
	return v.Amount.StringFixed(models.Currency(v.Currency).MinorUnits())
}

func (v PaymentView) amount() *activeAmount {
	return &activeAmount{Ccy: v.Currency, Value: v.AmountText()}
}

func formatDateTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(isoDateTime)
}

// entryStatus maps the payment status to a cash-management entry status
func entryStatus(s models.PaymentStatus) string {
	switch s {
	case models.StatusAccepted:
		return "BOOK"
	case models.StatusRejected:
		return "INFO"
	default:
		return "PDNG"
	}
}
