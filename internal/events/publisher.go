package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"

	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes every status change to a topic keyed by payment id,
// so all events of one payment land on the same partition in order.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaPublisher connects to the comma-separated broker list. Each publish
// gives up after timeout.
func NewKafkaPublisher(brokers, topic string, timeout time.Duration) *KafkaPublisher {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 5 * time.Millisecond,
			WriteTimeout: timeout,
			MaxAttempts:  2,
			RequiredAcks: kafka.RequireOne,
		},
		timeout: timeout,
	}
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, event models.StatusChangedEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: eventJSON,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher announces terminal decisions on <subject>.<status>; transient
// statuses are not forwarded.
type NatsPublisher struct {
	conn    natsConn
	subject string
	closeFn func()
}

func NewNatsPublisher(nc *nats.Conn, subject string) *NatsPublisher {
	return &NatsPublisher{conn: nc, subject: subject, closeFn: nc.Close}
}

func (p *NatsPublisher) PublishStatusChanged(_ context.Context, event models.StatusChangedEvent) error {
	if !event.State.IsTerminal() {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(fmt.Sprintf("%s.%s", p.subject, event.State), data)
}

func (p *NatsPublisher) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

// Fanout delivers to every publisher and joins their errors
type Fanout []interfaces.EventPublisher

func (f Fanout) PublishStatusChanged(ctx context.Context, event models.StatusChangedEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishStatusChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event
type Nop struct{}

func (Nop) PublishStatusChanged(context.Context, models.StatusChangedEvent) error { return nil }

func (Nop) Close() error { return nil }
