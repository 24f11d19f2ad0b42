package events

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"linkmart/pkg/domain"
	txcontext "linkmart/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO outbox (id, action, order_id, actor_id, actor_type, request_id, client_app, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		uuid.UUID(event.OrderID),
		uuid.UUID(event.ActorID),
		string(event.ActorType),
		event.RequestID,
		event.ClientApp,
		[]byte(event.Payload),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListUnpublished locks the returned rows so concurrent workers never ship
// the same event twice.
func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		SELECT id, action, order_id, actor_id, actor_type, request_id, client_app, payload, created_at, published_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var (
			e       Event
			orderID uuid.UUID
			actorID uuid.UUID
			payload []byte
		)
		err := rows.Scan(&e.ID, &e.Action, &orderID, &actorID, &e.ActorType, &e.RequestID, &e.ClientApp, &payload, &e.CreatedAt, &e.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		e.OrderID = domain.OrderID(orderID)
		e.ActorID = domain.UserID(actorID)
		e.Payload = payload
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
