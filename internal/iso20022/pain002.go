package iso20022

import "encoding/xml"

const NamespacePain002 = "urn:iso:std:iso:20022:tech:xsd:pain.002.001.03"

type pain002Document struct {
	XMLName xml.Name            `xml:"urn:iso:std:iso:20022:tech:xsd:pain.002.001.03 Document"`
	Report  pain002StatusReport `xml:"CstmrPmtStsRpt"`
}

type pain002StatusReport struct {
	GroupHeader    statusGroupHeader     `xml:"GrpHdr"`
	OriginalGroup  originalGroupInfo     `xml:"OrgnlGrpInfAndSts"`
	OriginalPmtInf pain002OriginalPmtInf `xml:"OrgnlPmtInfAndSts"`
}

type statusGroupHeader struct {
	MsgID   string `xml:"MsgId"`
	CreDtTm string `xml:"CreDtTm"`
}

type originalGroupInfo struct {
	OrgnlMsgID   string `xml:"OrgnlMsgId"`
	OrgnlMsgNmID string `xml:"OrgnlMsgNmId"`
}

type pain002OriginalPmtInf struct {
	OrgnlPmtInfID string          `xml:"OrgnlPmtInfId"`
	Transaction   pain002TxStatus `xml:"TxInfAndSts"`
}

type pain002TxStatus struct {
	OrgnlEndToEndID string               `xml:"OrgnlEndToEndId"`
	TxSts           string               `xml:"TxSts"`
	StsRsnInf       *statusReason        `xml:"StsRsnInf,omitempty"`
	OrgnlTxRef      pain002OriginalTxRef `xml:"OrgnlTxRef"`
}

type pain002OriginalTxRef struct {
	Amount      instructedAmount `xml:"Amt"`
	ReqdExctnDt string           `xml:"ReqdExctnDt,omitempty"`
}

// OrgnlMsgId points back at the pain.001 MsgId, i.e. the payment id.
func newPain002(v PaymentView) interface{} {
	return &pain002Document{
		Report: pain002StatusReport{
			GroupHeader: statusGroupHeader{
				MsgID:   v.PaymentID + "-status",
				CreDtTm: v.DecidedAt,
			},
			OriginalGroup: originalGroupInfo{
				OrgnlMsgID:   v.PaymentID,
				OrgnlMsgNmID: "pain.001.001.03",
			},
			OriginalPmtInf: pain002OriginalPmtInf{
				OrgnlPmtInfID: v.ExternalID,
				Transaction: pain002TxStatus{
					OrgnlEndToEndID: v.EndToEndID,
					TxSts:           string(v.Status),
					StsRsnInf:       reasonOf(v),
					OrgnlTxRef: pain002OriginalTxRef{
						Amount:      instructedAmount{InstdAmt: v.amount()},
						ReqdExctnDt: v.ExecutionDate,
					},
				},
			},
		},
	}
}
