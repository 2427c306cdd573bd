package iso20022

import "encoding/xml"

const NamespacePacs008 = "urn:iso:std:iso:20022:tech:xsd:pacs.008.001.02"

type pacs008Document struct {
	XMLName  xml.Name              `xml:"urn:iso:std:iso:20022:tech:xsd:pacs.008.001.02 Document"`
	Transfer pacs008CreditTransfer `xml:"FIToFICstmrCdtTrf"`
}

type pacs008CreditTransfer struct {
	GroupHeader pacs008GroupHeader `xml:"GrpHdr"`
	Transaction pacs008Transaction `xml:"CdtTrfTxInf"`
}

type pacs008GroupHeader struct {
	MsgID             string         `xml:"MsgId"`
	CreDtTm           string         `xml:"CreDtTm"`
	NbOfTxs           int            `xml:"NbOfTxs"`
	CtrlSum           string         `xml:"CtrlSum"`
	TtlIntrBkSttlmAmt *activeAmount  `xml:"TtlIntrBkSttlmAmt"`
	IntrBkSttlmDt     string         `xml:"IntrBkSttlmDt"`
	SttlmInf          settlementInfo `xml:"SttlmInf"`
}

type settlementInfo struct {
	SttlmMtd string `xml:"SttlmMtd"`
}

type pacs008Transaction struct {
	PaymentID       paymentIdentification `xml:"PmtId"`
	IntrBkSttlmAmt  *activeAmount         `xml:"IntrBkSttlmAmt"`
	InstdAmt        *activeAmount         `xml:"InstdAmt"`
	ChrgBr          string                `xml:"ChrgBr"`
	Debtor          partyIdentification   `xml:"Dbtr"`
	DebtorAccount   *ibanAccount          `xml:"DbtrAcct"`
	DebtorAgent     *financialInstitution `xml:"DbtrAgt"`
	CreditorAgent   *financialInstitution `xml:"CdtrAgt"`
	Creditor        partyIdentification   `xml:"Cdtr"`
	CreditorAccount *ibanAccount          `xml:"CdtrAcct"`
}

func newPacs008(v PaymentView) interface{} {
	return &pacs008Document{
		Transfer: pacs008CreditTransfer{
			GroupHeader: pacs008GroupHeader{
				MsgID:             v.PaymentID + "-pacs008",
				CreDtTm:           v.CreatedAt,
				NbOfTxs:           1,
				CtrlSum:           v.AmountText(),
				TtlIntrBkSttlmAmt: v.amount(),
				IntrBkSttlmDt:     v.ExecutionDate,
				SttlmInf:          settlementInfo{SttlmMtd: "CLRG"},
			},
			Transaction: pacs008Transaction{
				PaymentID: paymentIdentification{
					InstrID:    v.PaymentID,
					EndToEndID: v.EndToEndID,
					TxID:       v.PaymentID,
				},
				IntrBkSttlmAmt:  v.amount(),
				InstdAmt:        v.amount(),
				ChrgBr:          "SLEV",
				Debtor:          partyIdentification{Name: "Debtor"},
				DebtorAccount:   accountOf(v.DebtorIBAN),
				DebtorAgent:     notProvidedAgent(),
				CreditorAgent:   notProvidedAgent(),
				Creditor:        partyIdentification{Name: "Creditor"},
				CreditorAccount: accountOf(v.CreditorIBAN),
			},
		},
	}
}
