package domain

import (
	"github.com/google/uuid"

	dErrors "linkmart/pkg/domain-errors"
)

// Typed UUID wrappers so an OrderID can never be passed where a
// LineItemID is expected. Parsing enforces the invariant that IDs are
// valid, non-nil UUIDs at trust boundaries.

type (
	UserID       uuid.UUID
	AccountID    uuid.UUID
	ClientID     uuid.UUID
	OrderID      uuid.UUID
	LineItemID   uuid.UUID
	GroupID      uuid.UUID
	SubmissionID uuid.UUID
	WebsiteID    uuid.UUID
	BenchmarkID  uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id AccountID) String() string    { return uuid.UUID(id).String() }
func (id ClientID) String() string     { return uuid.UUID(id).String() }
func (id OrderID) String() string      { return uuid.UUID(id).String() }
func (id LineItemID) String() string   { return uuid.UUID(id).String() }
func (id GroupID) String() string      { return uuid.UUID(id).String() }
func (id SubmissionID) String() string { return uuid.UUID(id).String() }
func (id WebsiteID) String() string    { return uuid.UUID(id).String() }
func (id BenchmarkID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id OrderID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id LineItemID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id GroupID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SubmissionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id WebsiteID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id BenchmarkID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be the nil UUID")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account_id")
	return AccountID(u), err
}

func ParseClientID(s string) (ClientID, error) {
	u, err := parseUUID(s, "client_id")
	return ClientID(u), err
}

func ParseOrderID(s string) (OrderID, error) {
	u, err := parseUUID(s, "order_id")
	return OrderID(u), err
}

func ParseLineItemID(s string) (LineItemID, error) {
	u, err := parseUUID(s, "line_item_id")
	return LineItemID(u), err
}

func ParseGroupID(s string) (GroupID, error) {
	u, err := parseUUID(s, "group_id")
	return GroupID(u), err
}

func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parseUUID(s, "submission_id")
	return SubmissionID(u), err
}

func ParseWebsiteID(s string) (WebsiteID, error) {
	u, err := parseUUID(s, "website_id")
	return WebsiteID(u), err
}
