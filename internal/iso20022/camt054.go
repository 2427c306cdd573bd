package iso20022

import (
	"encoding/xml"

	"github.com/akylbek/payment-system/payment-core/internal/models"
)

const NamespaceCamt054 = "urn:iso:std:iso:20022:tech:xsd:camt.054.001.04"

type camt054Document struct {
	XMLName      xml.Name            `xml:"urn:iso:std:iso:20022:tech:xsd:camt.054.001.04 Document"`
	Notification camt054Notification `xml:"BkToCstmrDbtCdtNtfctn"`
}

type camt054Notification struct {
	GroupHeader  statusGroupHeader `xml:"GrpHdr"`
	Notification camt054Ntfctn     `xml:"Ntfctn"`
}

type camt054Ntfctn struct {
	ID         string       `xml:"Id"`
	Pagination pagination   `xml:"NtfctnPgntn"`
	CreDtTm    string       `xml:"CreDtTm"`
	Account    *ibanAccount `xml:"Acct"`
	Entry      entry        `xml:"Ntry"`
}

type pagination struct {
	PgNb      int  `xml:"PgNb"`
	LastPgInd bool `xml:"LastPgInd"`
}

// entry is shared with camt.053
type entry struct {
	NtryRef   string              `xml:"NtryRef"`
	Amount    *activeAmount       `xml:"Amt"`
	CdtDbtInd string              `xml:"CdtDbtInd"`
	Status    string              `xml:"Sts"`
	BookingDt *isoDate            `xml:"BookgDt,omitempty"`
	ValueDt   *isoDate            `xml:"ValDt,omitempty"`
	BkTxCd    bankTransactionCode `xml:"BkTxCd"`
	NtryDtls  entryDetails        `xml:"NtryDtls"`
}

type entryDetails struct {
	TxDtls transactionDetails `xml:"TxDtls"`
}

type transactionDetails struct {
	Refs   transactionReferences  `xml:"Refs"`
	RmtInf *remittanceInformation `xml:"RmtInf,omitempty"`
}

func newEntry(v PaymentView) entry {
	e := entry{
		NtryRef:   v.PaymentID,
		Amount:    v.amount(),
		CdtDbtInd: "CRDT",
		Status:    entryStatus(v.Status),
		BkTxCd:    bankTransactionCode{Proprietary: proprietaryCode{Code: "TRF"}},
		NtryDtls: entryDetails{TxDtls: transactionDetails{
			Refs:   transactionReferences{EndToEndID: v.EndToEndID},
			RmtInf: &remittanceInformation{Unstructured: v.EndToEndID},
		}},
	}
	if v.Status == models.StatusAccepted && v.ExecutionDate != "" {
		e.BookingDt = &isoDate{Date: v.ExecutionDate}
		e.ValueDt = &isoDate{Date: v.ExecutionDate}
	}
	return e
}

// Notifies the creditor account of the incoming transfer.
func newCamt054(v PaymentView) interface{} {
	return &camt054Document{
		Notification: camt054Notification{
			GroupHeader: statusGroupHeader{
				MsgID:   v.PaymentID + "-camt054",
				CreDtTm: v.DecidedAt,
			},
			Notification: camt054Ntfctn{
				ID:         v.PaymentID,
				Pagination: pagination{PgNb: 1, LastPgInd: true},
				CreDtTm:    v.DecidedAt,
				Account:    accountOf(v.CreditorIBAN),
				Entry:      newEntry(v),
			},
		},
	}
}
