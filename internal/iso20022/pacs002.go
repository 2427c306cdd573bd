package iso20022

import "encoding/xml"

const NamespacePacs002 = "urn:iso:std:iso:20022:tech:xsd:pacs.002.001.03"

type pacs002Document struct {
	XMLName xml.Name            `xml:"urn:iso:std:iso:20022:tech:xsd:pacs.002.001.03 Document"`
	Report  pacs002StatusReport `xml:"FIToFIPmtStsRpt"`
}

type pacs002StatusReport struct {
	GroupHeader   statusGroupHeader `xml:"GrpHdr"`
	OriginalGroup originalGroupInfo `xml:"OrgnlGrpInfAndSts"`
	Transaction   pacs002TxStatus   `xml:"TxInfAndSts"`
}

type pacs002TxStatus struct {
	OrgnlInstrID    string               `xml:"OrgnlInstrId"`
	OrgnlEndToEndID string               `xml:"OrgnlEndToEndId"`
	OrgnlTxID       string               `xml:"OrgnlTxId"`
	TxSts           string               `xml:"TxSts"`
	StsRsnInf       *statusReason        `xml:"StsRsnInf,omitempty"`
	OrgnlTxRef      pacs002OriginalTxRef `xml:"OrgnlTxRef"`
}

type pacs002OriginalTxRef struct {
	IntrBkSttlmAmt *activeAmount `xml:"IntrBkSttlmAmt"`
}

// Refers back to the pacs.008 of the same payment.
func newPacs002(v PaymentView) interface{} {
	return &pacs002Document{
		Report: pacs002StatusReport{
			GroupHeader: statusGroupHeader{
				MsgID:   v.PaymentID + "-pacs002",
				CreDtTm: v.DecidedAt,
			},
			OriginalGroup: originalGroupInfo{
				OrgnlMsgID:   v.PaymentID + "-pacs008",
				OrgnlMsgNmID: "pacs.008.001.02",
			},
			Transaction: pacs002TxStatus{
				OrgnlInstrID:    v.PaymentID,
				OrgnlEndToEndID: v.EndToEndID,
				OrgnlTxID:       v.PaymentID,
				TxSts:           string(v.Status),
				StsRsnInf:       reasonOf(v),
				OrgnlTxRef:      pacs002OriginalTxRef{IntrBkSttlmAmt: v.amount()},
			},
		},
	}
}
