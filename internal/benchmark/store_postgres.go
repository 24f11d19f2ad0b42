package benchmark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
	txcontext "linkmart/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, b *Benchmark) error {
	query := `
		INSERT INTO order_benchmarks (id, order_id, captured_by, benchmark_type, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(b.ID),
		uuid.UUID(b.OrderID),
		uuid.UUID(b.CapturedBy),
		string(b.Type),
		[]byte(b.Snapshot),
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert benchmark: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOrder(ctx context.Context, orderID domain.OrderID) ([]*Benchmark, error) {
	query := `
		SELECT id, order_id, captured_by, benchmark_type, snapshot, created_at
		FROM order_benchmarks
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, uuid.UUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("query benchmarks: %w", err)
	}
	defer rows.Close()

	var out []*Benchmark
	for rows.Next() {
		b, err := scanBenchmark(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate benchmarks: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Latest(ctx context.Context, orderID domain.OrderID, benchmarkType Type) (*Benchmark, error) {
	query := `
		SELECT id, order_id, captured_by, benchmark_type, snapshot, created_at
		FROM order_benchmarks
		WHERE order_id = $1 AND benchmark_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(orderID), string(benchmarkType))
	b, err := scanBenchmark(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return b, err
}

func scanBenchmark(scan func(dest ...any) error) (*Benchmark, error) {
	var (
		b          Benchmark
		id         uuid.UUID
		orderID    uuid.UUID
		capturedBy uuid.UUID
		snapshot   []byte
	)
	err := scan(&id, &orderID, &capturedBy, &b.Type, &snapshot, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan benchmark: %w", err)
	}
	b.ID = domain.BenchmarkID(id)
	b.OrderID = domain.OrderID(orderID)
	b.CapturedBy = domain.UserID(capturedBy)
	b.Snapshot = snapshot
	return &b, nil
}
