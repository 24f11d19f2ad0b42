package benchmark

import (
	"context"

	"linkmart/pkg/domain"
)

// Store persists benchmarks. Benchmarks are append-only; there is no update
// or delete.
type Store interface {
	Insert(ctx context.Context, b *Benchmark) error
	ListByOrder(ctx context.Context, orderID domain.OrderID) ([]*Benchmark, error)
	Latest(ctx context.Context, orderID domain.OrderID, benchmarkType Type) (*Benchmark, error)
}
