package iso20022

// Building blocks shared by several message schemas.

type activeAmount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type instructedAmount struct {
	InstdAmt *activeAmount `xml:"InstdAmt"`
}

type ibanAccount struct {
	ID accountID `xml:"Id"`
}

type accountID struct {
	IBAN string `xml:"IBAN,omitempty"`
}

func accountOf(iban string) *ibanAccount {
	return &ibanAccount{ID: accountID{IBAN: iban}}
}

type partyIdentification struct {
	Name string `xml:"Nm"`
}

type financialInstitution struct {
	FinInstnID finInstnID `xml:"FinInstnId"`
}

type finInstnID struct {
	Other otherID `xml:"Othr"`
}

type otherID struct {
	ID string `xml:"Id"`
}

// agents are not captured at creation time
func notProvidedAgent() *financialInstitution {
	return &financialInstitution{FinInstnID: finInstnID{Other: otherID{ID: "NOTPROVIDED"}}}
}

type paymentIdentification struct {
	InstrID    string `xml:"InstrId,omitempty"`
	EndToEndID string `xml:"EndToEndId"`
	TxID       string `xml:"TxId,omitempty"`
}

type statusReason struct {
	Reason reasonCode `xml:"Rsn"`
}

type reasonCode struct {
	Code string `xml:"Cd"`
}

func reasonOf(v PaymentView) *statusReason {
	if v.Reason == "" {
		return nil
	}
	return &statusReason{Reason: reasonCode{Code: v.Reason}}
}

type isoDate struct {
	Date string `xml:"Dt"`
}

type bankTransactionCode struct {
	Proprietary proprietaryCode `xml:"Prtry"`
}

type proprietaryCode struct {
	Code string `xml:"Cd"`
}

type transactionReferences struct {
	EndToEndID string `xml:"EndToEndId"`
}

type remittanceInformation struct {
	Unstructured string `xml:"Ustrd"`
}
