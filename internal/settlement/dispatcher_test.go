package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/payment-core/internal/models"
)

func TestInlineSubmitReturnsTerminalPayment(t *testing.T) {
	engine, ledger, _ := newTestEngine(DefaultPolicy(AmountLimits{Default: 1_000_000}, nil))
	seed(t, ledger, paymentWith(nil))

	p, err := NewInline(engine).Submit(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, p.Status.IsTerminal())
}

func waitForStatus(t *testing.T, get func() models.PaymentStatus, want models.PaymentStatus) {
	t.Helper()
	assert.Eventually(t, func() bool { return get() == want }, 2*time.Second, 5*time.Millisecond)
}

func TestWorkerSettlesSubmittedPayments(t *testing.T) {
	engine, ledger, _ := newTestEngine(DefaultPolicy(AmountLimits{Default: 1_000_000}, nil))
	seed(t, ledger, paymentWith(nil))

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(engine, ledger, 2, 8)
	require.NoError(t, w.Start(ctx))

	p, err := w.Submit(ctx, "p1")
	require.NoError(t, err)
	assert.Contains(t, []models.PaymentStatus{models.StatusPending, models.StatusAccepted}, p.Status)

	waitForStatus(t, func() models.PaymentStatus {
		p, _ := ledger.GetByID(ctx, "p1")
		return p.Status
	}, models.StatusAccepted)

	cancel()
	w.Wait()
}

func TestWorkerRecoversUndecidedPaymentsOnStart(t *testing.T) {
	engine, ledger, _ := newTestEngine(DefaultPolicy(AmountLimits{Default: 1_000_000}, nil))
	seed(t, ledger, paymentWith(nil))
	seed(t, ledger, paymentWith(func(p *models.Payment) { p.ID = "p2" }))
	_, err := engine.Accept(context.Background(), "p2")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(engine, ledger, 1, 1)
	require.NoError(t, w.Start(ctx))

	for _, id := range []string{"p1", "p2"} {
		id := id
		waitForStatus(t, func() models.PaymentStatus {
			p, _ := ledger.GetByID(ctx, id)
			return p.Status
		}, models.StatusAccepted)
	}

	cancel()
	w.Wait()
}
