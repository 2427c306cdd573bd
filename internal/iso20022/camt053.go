package iso20022

import (
	"encoding/xml"

	"github.com/shopspring/decimal"
)

const NamespaceCamt053 = "urn:iso:std:iso:20022:tech:xsd:camt.053.001.02"

// Statement is the message-neutral input of a camt.053 account statement.
type Statement struct {
	ID        string
	MsgID     string
	CreatedAt string
	Entries   []PaymentView
}

// ControlSum adds up entry amounts in major units across currencies.
func (s Statement) ControlSum() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range s.Entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

type camt053Document struct {
	XMLName   xml.Name         `xml:"urn:iso:std:iso:20022:tech:xsd:camt.053.001.02 Document"`
	Statement camt053Statement `xml:"BkToCstmrStmt"`
}

type camt053Statement struct {
	GroupHeader camt053GroupHeader `xml:"GrpHdr"`
	Statement   camt053Stmt        `xml:"Stmt"`
}

type camt053GroupHeader struct {
	MsgID    string `xml:"MsgId"`
	CreDtTm  string `xml:"CreDtTm"`
	NbOfMsgs int    `xml:"NbOfMsgs"`
	CtrlSum  string `xml:"CtrlSum"`
}

type camt053Stmt struct {
	ID      string              `xml:"Id"`
	CreDtTm string              `xml:"CreDtTm"`
	Summary transactionsSummary `xml:"TxsSummry"`
	Entries []entry             `xml:"Ntry"`
}

type transactionsSummary struct {
	TotalEntries totalEntries `xml:"TtlNtries"`
}

type totalEntries struct {
	NbOfNtries int    `xml:"NbOfNtries"`
	Sum        string `xml:"Sum"`
}

func newCamt053(s Statement) *camt053Document {
	entries := make([]entry, 0, len(s.Entries))
	for _, v := range s.Entries {
		entries = append(entries, newEntry(v))
	}
	sum := s.ControlSum().StringFixed(2)

	return &camt053Document{
		Statement: camt053Statement{
			GroupHeader: camt053GroupHeader{
				MsgID:    s.MsgID,
				CreDtTm:  s.CreatedAt,
				NbOfMsgs: len(entries),
				CtrlSum:  sum,
			},
			Statement: camt053Stmt{
				ID:      s.ID,
				CreDtTm: s.CreatedAt,
				Summary: transactionsSummary{TotalEntries: totalEntries{NbOfNtries: len(entries), Sum: sum}},
				Entries: entries,
			},
		},
	}
}
