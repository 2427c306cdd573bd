package interfaces

import "context"

// Transactor runs fn so that every store write made with the ctx it receives
// commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
