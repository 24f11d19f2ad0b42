package negotiation

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

type PostgresGroupStore struct {
	db *sql.DB
}

func NewPostgresGroupStore(db *sql.DB) *PostgresGroupStore {
	return &PostgresGroupStore{db: db}
}

const groupColumns = `id, order_id, client_id, link_count, requirement_overrides, created_at, updated_at`

func (s *PostgresGroupStore) Create(ctx context.Context, group *OrderGroup) error {
	overrides, err := json.Marshal(group.RequirementOverrides)
	if err != nil {
		return fmt.Errorf("marshal requirement overrides: %w", err)
	}
	query := `INSERT INTO order_groups (` + groupColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(group.ID),
		uuid.UUID(group.OrderID),
		uuid.UUID(group.ClientID),
		group.LinkCount,
		overrides,
		group.CreatedAt,
		group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order group: %w", err)
	}
	return nil
}

func (s *PostgresGroupStore) Get(ctx context.Context, id domain.GroupID) (*OrderGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM order_groups WHERE id = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id))
	group, err := scanGroup(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return group, err
}

func (s *PostgresGroupStore) ListByOrder(ctx context.Context, orderID domain.OrderID) ([]*OrderGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM order_groups WHERE order_id = $1 ORDER BY created_at`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, uuid.UUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("query order groups: %w", err)
	}
	defer rows.Close()

	var groups []*OrderGroup
	for rows.Next() {
		group, err := scanGroup(rows.Scan)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order groups: %w", err)
	}
	return groups, nil
}

func (s *PostgresGroupStore) Update(ctx context.Context, group *OrderGroup) error {
	overrides, err := json.Marshal(group.RequirementOverrides)
	if err != nil {
		return fmt.Errorf("marshal requirement overrides: %w", err)
	}
	query := `
		UPDATE order_groups SET
			link_count = $2,
			requirement_overrides = $3,
			updated_at = $4
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(group.ID),
		group.LinkCount,
		overrides,
		group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order group rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanGroup(scan func(dest ...any) error) (*OrderGroup, error) {
	var (
		group     OrderGroup
		id        uuid.UUID
		orderID   uuid.UUID
		clientID  uuid.UUID
		overrides []byte
	)
	err := scan(&id, &orderID, &clientID, &group.LinkCount, &overrides, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order group: %w", err)
	}
	group.ID = domain.GroupID(id)
	group.OrderID = domain.OrderID(orderID)
	group.ClientID = domain.ClientID(clientID)
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &group.RequirementOverrides); err != nil {
			return nil, fmt.Errorf("unmarshal requirement overrides: %w", err)
		}
	}
	return &group, nil
}

type PostgresSubmissionStore struct {
	db *sql.DB
}

func NewPostgresSubmissionStore(db *sql.DB) *PostgresSubmissionStore {
	return &PostgresSubmissionStore{db: db}
}

const submissionColumns = `id, group_id, order_id, website_id, domain, submission_status,
	inclusion_status, client_review_notes, metadata, assigned_to_line_item_id, created_at, updated_at`

func (s *PostgresSubmissionStore) Create(ctx context.Context, sub *OrderSiteSubmission) error {
	metadata, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("marshal submission metadata: %w", err)
	}
	query := `
		INSERT INTO order_site_submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		uuid.UUID(sub.GroupID),
		uuid.UUID(sub.OrderID),
		uuid.UUID(sub.WebsiteID),
		sub.Domain,
		string(sub.SubmissionStatus),
		string(sub.InclusionStatus),
		sub.ClientReviewNotes,
		metadata,
		lineItemIDOrNil(sub.AssignedToLineItemID),
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert site submission: %w", err)
	}
	return nil
}

func (s *PostgresSubmissionStore) Get(ctx context.Context, id domain.SubmissionID) (*OrderSiteSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM order_site_submissions WHERE id = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id))
	sub, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return sub, err
}

func (s *PostgresSubmissionStore) ListByGroup(ctx context.Context, groupID domain.GroupID) ([]*OrderSiteSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM order_site_submissions WHERE group_id = $1 ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(groupID))
}

// ListByAssignedLineItem relies on the idx_submissions_assigned_line_item
// index; unassign must not degrade to a full-table scan.
func (s *PostgresSubmissionStore) ListByAssignedLineItem(ctx context.Context, lineItemID domain.LineItemID) ([]*OrderSiteSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM order_site_submissions WHERE assigned_to_line_item_id = $1 ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(lineItemID))
}

func (s *PostgresSubmissionStore) list(ctx context.Context, query string, arg any) ([]*OrderSiteSubmission, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query site submissions: %w", err)
	}
	defer rows.Close()

	var subs []*OrderSiteSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site submissions: %w", err)
	}
	return subs, nil
}

func (s *PostgresSubmissionStore) Update(ctx context.Context, sub *OrderSiteSubmission) error {
	metadata, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("marshal submission metadata: %w", err)
	}
	query := `
		UPDATE order_site_submissions SET
			submission_status = $2,
			inclusion_status = $3,
			client_review_notes = $4,
			metadata = $5,
			assigned_to_line_item_id = $6,
			updated_at = $7
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		string(sub.SubmissionStatus),
		string(sub.InclusionStatus),
		sub.ClientReviewNotes,
		metadata,
		lineItemIDOrNil(sub.AssignedToLineItemID),
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update site submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update site submission rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Consume is Update guarded by assigned_to_line_item_id IS NULL, so a
// submission consumed by a concurrent transaction matches zero rows rather
// than being reassigned.
func (s *PostgresSubmissionStore) Consume(ctx context.Context, sub *OrderSiteSubmission) error {
	metadata, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("marshal submission metadata: %w", err)
	}
	query := `
		UPDATE order_site_submissions SET
			submission_status = $2,
			inclusion_status = $3,
			client_review_notes = $4,
			metadata = $5,
			assigned_to_line_item_id = $6,
			updated_at = $7
		WHERE id = $1 AND assigned_to_line_item_id IS NULL
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		string(sub.SubmissionStatus),
		string(sub.InclusionStatus),
		sub.ClientReviewNotes,
		metadata,
		lineItemIDOrNil(sub.AssignedToLineItemID),
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("consume site submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume site submission rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func scanSubmission(scan func(dest ...any) error) (*OrderSiteSubmission, error) {
	var (
		sub        OrderSiteSubmission
		id         uuid.UUID
		groupID    uuid.UUID
		orderID    uuid.UUID
		websiteID  uuid.UUID
		metadata   []byte
		lineItemID *uuid.UUID
	)
	err := scan(
		&id,
		&groupID,
		&orderID,
		&websiteID,
		&sub.Domain,
		&sub.SubmissionStatus,
		&sub.InclusionStatus,
		&sub.ClientReviewNotes,
		&metadata,
		&lineItemID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan site submission: %w", err)
	}
	sub.ID = domain.SubmissionID(id)
	sub.GroupID = domain.GroupID(groupID)
	sub.OrderID = domain.OrderID(orderID)
	sub.WebsiteID = domain.WebsiteID(websiteID)
	if lineItemID != nil {
		lid := domain.LineItemID(*lineItemID)
		sub.AssignedToLineItemID = &lid
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &sub.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal submission metadata: %w", err)
		}
	}
	return &sub, nil
}

func lineItemIDOrNil(id *domain.LineItemID) *uuid.UUID {
	if id == nil {
		return nil
	}
	u := uuid.UUID(*id)
	return &u
}
