package lineitem

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

const lineItemColumns = `id, order_id, client_id, target_page_url, anchor_text,
	assigned_domain_id, assigned_domain, wholesale_price, estimated_price,
	approved_price, status, metadata, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, item *LineItem) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal line item metadata: %w", err)
	}
	query := `
		INSERT INTO order_line_items (` + lineItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(item.ID),
		uuid.UUID(item.OrderID),
		uuid.UUID(item.ClientID),
		item.TargetPageURL,
		item.AnchorText,
		websiteIDOrNil(item.AssignedDomainID),
		nullString(item.AssignedDomain),
		item.WholesalePrice,
		item.EstimatedPrice,
		item.ApprovedPrice,
		string(item.Status),
		metadata,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.LineItemID) (*LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM order_line_items WHERE id = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id))
	item, err := scanLineItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return item, err
}

func (s *PostgresStore) ListByOrder(ctx context.Context, orderID domain.OrderID) ([]*LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM order_line_items WHERE order_id = $1 ORDER BY created_at`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, uuid.UUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		item, err := scanLineItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Update(ctx context.Context, item *LineItem) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal line item metadata: %w", err)
	}
	query := `
		UPDATE order_line_items SET
			assigned_domain_id = $2,
			assigned_domain = $3,
			wholesale_price = $4,
			estimated_price = $5,
			approved_price = $6,
			status = $7,
			metadata = $8,
			updated_at = $9
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(item.ID),
		websiteIDOrNil(item.AssignedDomainID),
		nullString(item.AssignedDomain),
		item.WholesalePrice,
		item.EstimatedPrice,
		item.ApprovedPrice,
		string(item.Status),
		metadata,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update line item rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Assign is Update guarded by assigned_domain_id IS NULL. Under read
// committed, two transactions assigning the same line item both pass the
// service's staleness check; the predicate makes the second one match zero
// rows instead of overwriting the first.
func (s *PostgresStore) Assign(ctx context.Context, item *LineItem) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal line item metadata: %w", err)
	}
	query := `
		UPDATE order_line_items SET
			assigned_domain_id = $2,
			assigned_domain = $3,
			wholesale_price = $4,
			estimated_price = $5,
			approved_price = $6,
			status = $7,
			metadata = $8,
			updated_at = $9
		WHERE id = $1 AND assigned_domain_id IS NULL
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(item.ID),
		websiteIDOrNil(item.AssignedDomainID),
		nullString(item.AssignedDomain),
		item.WholesalePrice,
		item.EstimatedPrice,
		item.ApprovedPrice,
		string(item.Status),
		metadata,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("assign line item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign line item rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func scanLineItem(scan func(dest ...any) error) (*LineItem, error) {
	var (
		item             LineItem
		id, orderID      uuid.UUID
		clientID         uuid.UUID
		assignedDomainID *uuid.UUID
		assignedDomain   sql.NullString
		metadata         []byte
	)
	err := scan(
		&id,
		&orderID,
		&clientID,
		&item.TargetPageURL,
		&item.AnchorText,
		&assignedDomainID,
		&assignedDomain,
		&item.WholesalePrice,
		&item.EstimatedPrice,
		&item.ApprovedPrice,
		&item.Status,
		&metadata,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan line item: %w", err)
	}
	item.ID = domain.LineItemID(id)
	item.OrderID = domain.OrderID(orderID)
	item.ClientID = domain.ClientID(clientID)
	if assignedDomainID != nil {
		wid := domain.WebsiteID(*assignedDomainID)
		item.AssignedDomainID = &wid
	}
	item.AssignedDomain = assignedDomain.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal line item metadata: %w", err)
		}
	}
	return &item, nil
}

func websiteIDOrNil(id *domain.WebsiteID) *uuid.UUID {
	if id == nil {
		return nil
	}
	u := uuid.UUID(*id)
	return &u
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
