package models

import "strings"

type MessageKind string

const (
	MessagePain001 MessageKind = "pain001"
	MessagePain002 MessageKind = "pain002"
	MessagePacs008 MessageKind = "pacs008"
	MessagePacs002 MessageKind = "pacs002"
	MessageCamt054 MessageKind = "camt054"
	MessageCamt053 MessageKind = "camt053"
)

// ParseMessageKind accepts both "pain001" and dotted "pain.001" spellings.
func ParseMessageKind(s string) (MessageKind, bool) {
	k := MessageKind(strings.ToLower(strings.ReplaceAll(s, ".", "")))
	switch k {
	case MessagePain001, MessagePain002, MessagePacs008, MessagePacs002, MessageCamt054, MessageCamt053:
		return k, true
	}
	return "", false
}

// IsStatusReport reports whether the message carries a TxSts and so needs a terminal payment.
func (k MessageKind) IsStatusReport() bool {
	return k == MessagePain002 || k == MessagePacs002
}
