// Package statement aggregates ledger payments into a camt.053 account statement.
package statement

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/payment-core/internal/iso20022"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

// statementNamespace seeds the name-based statement id
var statementNamespace = uuid.MustParse("6f1c2b0e-5d0a-4c53-9a57-0c1f2f6a3b21")

// Build keeps terminal payments in ledger order and wraps them as a statement
// created at asOf. The statement id depends only on the included payments, so
// repeated calls over the same ledger snapshot name the same statement.
func Build(payments []models.Payment, asOf time.Time) iso20022.Statement {
	entries := make([]iso20022.PaymentView, 0, len(payments))
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		if !p.Status.IsTerminal() {
			continue
		}
		entries = append(entries, iso20022.NewPaymentView(p))
		ids = append(ids, p.ID)
	}

	asOf = asOf.UTC()
	return iso20022.Statement{
		ID:        uuid.NewSHA1(statementNamespace, []byte(strings.Join(ids, ","))).String(),
		MsgID:     "STMT-" + asOf.Format("20060102150405"),
		CreatedAt: asOf.Truncate(time.Second).Format(time.RFC3339),
		Entries:   entries,
	}
}

// Render builds and encodes the statement in one step
func Render(payments []models.Payment, asOf time.Time) ([]byte, int, error) {
	s := Build(payments, asOf)
	out, err := iso20022.RenderStatement(s)
	if err != nil {
		return nil, 0, err
	}
	return out, len(s.Entries), nil
}
