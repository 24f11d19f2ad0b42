package benchmark

import (
	"encoding/json"
	"time"

	"linkmart/pkg/domain"
)

// Type labels the checkpoint that triggered a snapshot.
type Type string

const (
	TypeResubmission Type = "resubmission"
	TypeClientReview Type = "client_review"
)

// Benchmark is an immutable point-in-time snapshot of an order and its line
// items, used for dispute resolution and "what changed since last review"
// diffing. Rows are write-once.
type Benchmark struct {
	ID         domain.BenchmarkID
	OrderID    domain.OrderID
	CapturedBy domain.UserID
	Type       Type
	Snapshot   json.RawMessage
	CreatedAt  time.Time
}
