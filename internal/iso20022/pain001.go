package iso20022

import "encoding/xml"

const NamespacePain001 = "urn:iso:std:iso:20022:tech:xsd:pain.001.001.03"

type pain001Document struct {
	XMLName    xml.Name              `xml:"urn:iso:std:iso:20022:tech:xsd:pain.001.001.03 Document"`
	Initiation pain001CreditTransfer `xml:"CstmrCdtTrfInitn"`
}

type pain001CreditTransfer struct {
	GroupHeader pain001GroupHeader `xml:"GrpHdr"`
	PaymentInfo pain001PaymentInfo `xml:"PmtInf"`
}

type pain001GroupHeader struct {
	MsgID         string              `xml:"MsgId"`
	CreDtTm       string              `xml:"CreDtTm"`
	NbOfTxs       int                 `xml:"NbOfTxs"`
	CtrlSum       string              `xml:"CtrlSum"`
	InitiatingPty partyIdentification `xml:"InitgPty"`
}

type pain001PaymentInfo struct {
	PmtInfID      string                `xml:"PmtInfId"`
	PmtMtd        string                `xml:"PmtMtd"`
	BtchBookg     bool                  `xml:"BtchBookg"`
	NbOfTxs       int                   `xml:"NbOfTxs"`
	CtrlSum       string                `xml:"CtrlSum"`
	ReqdExctnDt   string                `xml:"ReqdExctnDt"`
	Debtor        partyIdentification   `xml:"Dbtr"`
	DebtorAccount *ibanAccount          `xml:"DbtrAcct"`
	DebtorAgent   *financialInstitution `xml:"DbtrAgt"`
	Transaction   pain001Transaction    `xml:"CdtTrfTxInf"`
}

type pain001Transaction struct {
	PaymentID       paymentIdentification `xml:"PmtId"`
	Amount          instructedAmount      `xml:"Amt"`
	CreditorAgent   *financialInstitution `xml:"CdtrAgt"`
	Creditor        partyIdentification   `xml:"Cdtr"`
	CreditorAccount *ibanAccount          `xml:"CdtrAcct"`
}

// MsgId is the payment id, PmtInfId the caller's external id.
func newPain001(v PaymentView) interface{} {
	return &pain001Document{
		Initiation: pain001CreditTransfer{
			GroupHeader: pain001GroupHeader{
				MsgID:         v.PaymentID,
				CreDtTm:       v.CreatedAt,
				NbOfTxs:       1,
				CtrlSum:       v.AmountText(),
				InitiatingPty: partyIdentification{Name: "Debtor"},
			},
			PaymentInfo: pain001PaymentInfo{
				PmtInfID:      v.ExternalID,
				PmtMtd:        "TRF",
				NbOfTxs:       1,
				CtrlSum:       v.AmountText(),
				ReqdExctnDt:   v.ExecutionDate,
				Debtor:        partyIdentification{Name: "Debtor"},
				DebtorAccount: accountOf(v.DebtorIBAN),
				DebtorAgent:   notProvidedAgent(),
				Transaction: pain001Transaction{
					PaymentID:       paymentIdentification{EndToEndID: v.EndToEndID},
					Amount:          instructedAmount{InstdAmt: v.amount()},
					CreditorAgent:   notProvidedAgent(),
					Creditor:        partyIdentification{Name: "Creditor"},
					CreditorAccount: accountOf(v.CreditorIBAN),
				},
			},
		},
	}
}
