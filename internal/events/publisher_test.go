package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/metrics"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/repository"
	"github.com/akylbek/payment-system/payment-core/internal/settlement"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	out []published
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.out = append(c.out, published{subject, data})
	return nil
}

func event(state models.PaymentStatus) models.StatusChangedEvent {
	return models.StatusChangedEvent{
		PaymentID:     "p1",
		EndToEndID:    "e2e-1",
		State:         state,
		PreviousState: models.StatusPending,
		Timestamp:     time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisherKeysByPaymentID(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.PublishStatusChanged(context.Background(), event(models.StatusAccepted)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("p1"), w.msgs[0].Key)

	var decoded models.StatusChangedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.StatusAccepted, decoded.State)
	assert.Equal(t, models.StatusPending, decoded.PreviousState)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

// stallingWriter never reaches a broker and returns only when ctx ends
type stallingWriter struct{}

func (stallingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stallingWriter) Close() error { return nil }

func TestKafkaPublisherBoundsUnreachableBroker(t *testing.T) {
	p := &KafkaPublisher{writer: stallingWriter{}, timeout: 20 * time.Millisecond}

	start := time.Now()
	err := p.PublishStatusChanged(context.Background(), event(models.StatusAccepted))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSettleStaysBoundedWithStalledBroker(t *testing.T) {
	ctx := context.Background()
	ledger := repository.NewMemoryPaymentRepository()
	now := time.Now().UTC()
	require.NoError(t, ledger.Create(ctx, &models.Payment{
		ID:           "p1",
		ExternalID:   "ext-1",
		EndToEndID:   "e2e-1",
		DebtorIBAN:   "SE4550000000058398257466",
		CreditorIBAN: "DE89370400440532013000",
		Currency:     models.CurrencyEUR,
		AmountMinor:  100,
		Status:       models.StatusInitiated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	pub := &KafkaPublisher{writer: stallingWriter{}, timeout: 20 * time.Millisecond}
	engine := settlement.NewEngine(ledger, settlement.DefaultPolicy(settlement.AmountLimits{Default: 100_000_000}, nil), pub, metrics.NewNop())

	start := time.Now()
	p, err := engine.Settle(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, p.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewKafkaPublisherSplitsBrokerList(t *testing.T) {
	p := NewKafkaPublisher("kafka-1:9092, kafka-2:9092,", "payments", time.Second)
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "kafka-1:9092,kafka-2:9092", w.Addr.String())
	assert.Equal(t, "tcp,tcp", w.Addr.Network(), "one address per broker")
	assert.Equal(t, time.Second, w.WriteTimeout)
	assert.Less(t, w.BatchTimeout, 100*time.Millisecond)
}

func TestNatsPublisherOnlyAnnouncesTerminalStatuses(t *testing.T) {
	conn := &fakeConn{}
	p := &NatsPublisher{conn: conn, subject: "payments.settled"}
	ctx := context.Background()

	require.NoError(t, p.PublishStatusChanged(ctx, event(models.StatusPending)))
	require.NoError(t, p.PublishStatusChanged(ctx, event(models.StatusRejected)))

	require.Len(t, conn.out, 1)
	assert.Equal(t, "payments.settled.RJCT", conn.out[0].subject)
	assert.NoError(t, p.Close())
}

func TestFanoutJoinsErrors(t *testing.T) {
	failing := &fakeWriter{err: errors.New("broker down")}
	ok := &fakeWriter{}
	f := Fanout{&KafkaPublisher{writer: failing}, &KafkaPublisher{writer: ok}, Nop{}}

	err := f.PublishStatusChanged(context.Background(), event(models.StatusAccepted))
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, ok.msgs, 1, "one failing sink does not starve the others")

	require.NoError(t, f.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

var _ interfaces.EventPublisher = Fanout(nil)
