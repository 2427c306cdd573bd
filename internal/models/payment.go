package models

import "time"

type PaymentStatus string

const (
	StatusInitiated PaymentStatus = "INITIATED"
	StatusPending   PaymentStatus = "PENDING"
	StatusAccepted  PaymentStatus = "ACSP"
	StatusRejected  PaymentStatus = "RJCT"
)

// IsTerminal reports whether no further transition may leave this status
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

var transitions = map[PaymentStatus][]PaymentStatus{
	StatusInitiated: {StatusPending},
	StatusPending:   {StatusAccepted, StatusRejected},
}

// CanTransitionTo reports whether the state machine allows s -> to.
// Terminal statuses have no outgoing edges.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencySEK Currency = "SEK"
	CurrencyUSD Currency = "USD"
)

// SupportedCurrencies lists the currencies a payment may be created in.
var SupportedCurrencies = []Currency{CurrencyEUR, CurrencySEK, CurrencyUSD}

var minorUnits = map[Currency]int32{
	CurrencyEUR: 2,
	CurrencySEK: 2,
	CurrencyUSD: 2,
}

// MinorUnits returns the number of decimal places of the currency's minor unit.
func (c Currency) MinorUnits() int32 {
	if n, ok := minorUnits[c]; ok {
		return n
	}
	return 2
}

// Payment is owned by the ledger; only Status, StatusReason and UpdatedAt change after creation.
type Payment struct {
	ID                       string        `json:"id"`
	ExternalID               string        `json:"externalId"`
	EndToEndID               string        `json:"endToEndId"`
	DebtorIBAN               string        `json:"debtorIban"`
	CreditorIBAN             string        `json:"creditorIban"`
	Currency                 Currency      `json:"currency"`
	AmountMinor              int64         `json:"amountMinor"`
	Status                   PaymentStatus `json:"status"`
	StatusReason             string        `json:"statusReason,omitempty"`
	ScheduledNextBusinessDay bool          `json:"scheduledNextBusinessDay"`
	RequestedExecutionDate   string        `json:"requestedExecutionDate"`
	CreatedAt                time.Time     `json:"createdAt"`
	UpdatedAt                time.Time     `json:"updatedAt"`
}

// CreatePaymentRequest is the caller input of createPayment before validation
type CreatePaymentRequest struct {
	ExternalID     string `json:"externalId"`
	DebtorIBAN     string `json:"debtorIban"`
	CreditorIBAN   string `json:"creditorIban"`
	Currency       string `json:"currency"`
	AmountMinor    int64  `json:"amountMinor"`
	IdempotencyKey string `json:"-"`
}

// IdempotencyRecord maps a caller key to the payment created for it.
type IdempotencyRecord struct {
	Key         string    `json:"key"`
	PaymentID   string    `json:"paymentId"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StatusChangedEvent is published on every ledger status transition
type StatusChangedEvent struct {
	PaymentID     string        `json:"payment_id"`
	EndToEndID    string        `json:"end_to_end_id"`
	State         PaymentStatus `json:"state"`
	PreviousState PaymentStatus `json:"previous_state"`
	Reason        string        `json:"reason,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}
