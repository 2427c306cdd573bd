package iso20022

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

var renderers = map[models.MessageKind]func(PaymentView) interface{}{
	models.MessagePain001: newPain001,
	models.MessagePain002: newPain002,
	models.MessagePacs008: newPacs008,
	models.MessagePacs002: newPacs002,
	models.MessageCamt054: newCamt054,
}

// Render encodes a single payment as the requested message. Status reports
// fail with apperrors.ErrNotYetFinal until the payment is ACSP or RJCT.
// camt.053 is not a per-payment message; use RenderStatement.
func Render(kind models.MessageKind, p models.Payment) ([]byte, error) {
	build, ok := renderers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedMessage, kind)
	}
	if kind.IsStatusReport() && !p.Status.IsTerminal() {
		return nil, fmt.Errorf("%s for payment %s in %s: %w", kind, p.ID, p.Status, apperrors.ErrNotYetFinal)
	}
	return encode(build(NewPaymentView(p)))
}

// RenderStatement encodes a camt.053 account statement.
func RenderStatement(s Statement) ([]byte, error) {
	return encode(newCamt053(s))
}

func encode(doc interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
