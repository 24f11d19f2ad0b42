package order

import (
	"context"
	"database/sql"
	"encoding/json"
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

const orderColumns = `id, account_id, status, state, internal_notes,
	subtotal_retail, discount, total_retail, total_wholesale, profit_margin,
	estimated_price_per_link, estimated_links_count, resubmission_count,
	preferences, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, o *Order) error {
	prefs, err := json.Marshal(o.Preferences)
	if err != nil {
		return fmt.Errorf("marshal order preferences: %w", err)
	}
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(o.ID),
		uuid.UUID(o.AccountID),
		string(o.Status),
		string(o.State),
		o.InternalNotes,
		o.SubtotalRetail,
		o.Discount,
		o.TotalRetail,
		o.TotalWholesale,
		o.ProfitMargin,
		o.EstimatedPricePerLink,
		o.EstimatedLinksCount,
		o.ResubmissionCount,
		prefs,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.OrderID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id))

	var (
		o         Order
		oid, acct uuid.UUID
		prefs     []byte
	)
	err := row.Scan(
		&oid,
		&acct,
		&o.Status,
		&o.State,
		&o.InternalNotes,
		&o.SubtotalRetail,
		&o.Discount,
		&o.TotalRetail,
		&o.TotalWholesale,
		&o.ProfitMargin,
		&o.EstimatedPricePerLink,
		&o.EstimatedLinksCount,
		&o.ResubmissionCount,
		&prefs,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.ID = domain.OrderID(oid)
	o.AccountID = domain.AccountID(acct)
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &o.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshal order preferences: %w", err)
		}
	}
	return &o, nil
}

func (s *PostgresStore) Update(ctx context.Context, o *Order) error {
	prefs, err := json.Marshal(o.Preferences)
	if err != nil {
		return fmt.Errorf("marshal order preferences: %w", err)
	}
	query := `
		UPDATE orders SET
			status = $2,
			state = $3,
			internal_notes = $4,
			subtotal_retail = $5,
			discount = $6,
			total_retail = $7,
			total_wholesale = $8,
			profit_margin = $9,
			estimated_price_per_link = $10,
			estimated_links_count = $11,
			resubmission_count = $12,
			preferences = $13,
			updated_at = $14
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(o.ID),
		string(o.Status),
		string(o.State),
		o.InternalNotes,
		o.SubtotalRetail,
		o.Discount,
		o.TotalRetail,
		o.TotalWholesale,
		o.ProfitMargin,
		o.EstimatedPricePerLink,
		o.EstimatedLinksCount,
		o.ResubmissionCount,
		prefs,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendStatusHistory(ctx context.Context, entry *StatusHistoryEntry) error {
	query := `
		INSERT INTO order_status_history (order_id, from_status, to_status, from_state, to_state, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(entry.OrderID),
		string(entry.FromStatus),
		string(entry.ToStatus),
		string(entry.FromState),
		string(entry.ToState),
		uuid.UUID(entry.ActorID),
		entry.Notes,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStatusHistory(ctx context.Context, orderID domain.OrderID) ([]*StatusHistoryEntry, error) {
	query := `
		SELECT order_id, from_status, to_status, from_state, to_state, actor_id, notes, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, uuid.UUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var entries []*StatusHistoryEntry
	for rows.Next() {
		var (
			entry   StatusHistoryEntry
			oid     uuid.UUID
			actorID uuid.UUID
		)
		err := rows.Scan(&oid, &entry.FromStatus, &entry.ToStatus, &entry.FromState, &entry.ToState, &actorID, &entry.Notes, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		entry.OrderID = domain.OrderID(oid)
		entry.ActorID = domain.UserID(actorID)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return entries, nil
}
