package settlement

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
)

// Dispatcher hands a freshly created payment to settlement and returns the
// payment as it stands when the call returns.
type Dispatcher interface {
	Submit(ctx context.Context, id string) (*models.Payment, error)
}

// Inline settles within the caller's request, so status reports are available
// as soon as creation returns.
type Inline struct {
	engine *Engine
}

func NewInline(engine *Engine) *Inline {
	return &Inline{engine: engine}
}

func (d *Inline) Submit(ctx context.Context, id string) (*models.Payment, error) {
	return d.engine.Settle(ctx, id)
}

// Worker settles payments on a bounded pool of goroutines. Submit only moves
// the payment to PENDING; the decision lands later and is announced through
// the engine's publisher.
type Worker struct {
	engine  *Engine
	ledger  interfaces.PaymentReader
	queue   chan string
	workers int
	wg      sync.WaitGroup
}

func NewWorker(engine *Engine, ledger interfaces.PaymentReader, workers, queueSize int) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		engine:  engine,
		ledger:  ledger,
		queue:   make(chan string, queueSize),
		workers: workers,
	}
}

// Start launches the pool and re-queues every payment left undecided by a
// previous process. Workers exit when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	undecided, err := w.ledger.ListByStatus(ctx, models.StatusInitiated, models.StatusPending)
	if err != nil {
		return fmt.Errorf("recover undecided payments: %w", err)
	}

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}

	if len(undecided) > 0 {
		telemetry.Logger.Info("Recovering undecided payments", zap.Int("count", len(undecided)))
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for _, p := range undecided {
				if err := w.enqueue(ctx, p.ID); err != nil {
					return
				}
			}
		}()
	}
	return nil
}

// Wait blocks until every worker has exited
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) Submit(ctx context.Context, id string) (*models.Payment, error) {
	p, err := w.engine.Accept(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return p, nil
	}
	if err := w.enqueue(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (w *Worker) enqueue(ctx context.Context, id string) error {
	select {
	case w.queue <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			if _, err := w.engine.Settle(ctx, id); err != nil {
				telemetry.Logger.Error("Error settling payment",
					zap.String("payment_id", id),
					zap.Error(err),
				)
			}
		}
	}
}
