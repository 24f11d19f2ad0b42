package negotiation

import (
	"time"

	"linkmart/pkg/domain"
)

// SubmissionStatus tracks the client's verdict on a proposed site.
type SubmissionStatus string

const (
	SubmissionPending        SubmissionStatus = "pending"
	SubmissionClientApproved SubmissionStatus = "client_approved"
	SubmissionClientRejected SubmissionStatus = "client_rejected"
)

// InclusionStatus tracks whether a submission still counts toward the order.
type InclusionStatus string

const (
	InclusionIncluded InclusionStatus = "included"
	InclusionExcluded InclusionStatus = "excluded"
)

// SuggestionRound is one append-only log entry recording a feedback round.
// Entries are never mutated after creation.
type SuggestionRound struct {
	Round           int       `json:"round"`
	Timestamp       time.Time `json:"timestamp"`
	RequestedTotal  int       `json:"requestedTotal"`
	ApprovedCount   int       `json:"approvedCount"`
	ShortfallCount  int       `json:"shortfallCount"`
	RequestedBy     string    `json:"requestedBy"`
	GeneralFeedback string    `json:"generalFeedback,omitempty"`
}

// RequirementOverrides is the negotiation metadata bag carried by a group.
type RequirementOverrides struct {
	SuggestionRounds     []SuggestionRound `json:"suggestionRounds,omitempty"`
	NeedsMoreSuggestions bool              `json:"needsMoreSuggestions,omitempty"`
	TotalRequestedLinks  int               `json:"totalRequestedLinks,omitempty"`
	TotalApprovedLinks   int               `json:"totalApprovedLinks,omitempty"`
}

// CurrentRound is the round number the next feedback submission will record.
// Rounds are monotonically increasing integers starting at 1.
func (r RequirementOverrides) CurrentRound() int {
	return len(r.SuggestionRounds) + 1
}

// OrderGroup groups line items by client within an order. It is the legacy
// parallel model: line items are the source of truth, the group is a derived
// negotiation-metadata container kept consistent by the engine.
type OrderGroup struct {
	ID                   domain.GroupID
	OrderID              domain.OrderID
	ClientID             domain.ClientID
	LinkCount            int
	RequirementOverrides RequirementOverrides
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SubmissionMetadata records why and when a site was rejected. Reasons attach
// to the specific submission they describe, not to the round as a whole, so
// historical reasoning survives replacement.
type SubmissionMetadata struct {
	RejectionReason   string `json:"rejectionReason,omitempty"`
	RejectionCategory string `json:"rejectionCategory,omitempty"`
	FeedbackRound     int    `json:"feedbackRound,omitempty"`
}

// OrderSiteSubmission is one candidate-site proposal tied to an order group.
type OrderSiteSubmission struct {
	ID                   domain.SubmissionID
	GroupID              domain.GroupID
	OrderID              domain.OrderID
	WebsiteID            domain.WebsiteID
	Domain               string
	SubmissionStatus     SubmissionStatus
	InclusionStatus      InclusionStatus
	ClientReviewNotes    string
	Metadata             SubmissionMetadata
	AssignedToLineItemID *domain.LineItemID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsConsumed reports whether the submission already feeds a line item.
func (s *OrderSiteSubmission) IsConsumed() bool {
	return s.AssignedToLineItemID != nil && !s.AssignedToLineItemID.IsNil()
}

// RejectionReasons maps submission IDs to the reason the client gave.
type RejectionReason struct {
	Reason   string `json:"reason"`
	Category string `json:"category,omitempty"`
}

// Status is the negotiation snapshot returned to clients.
type Status struct {
	RequestedLinks   int               `json:"requestedLinks"`
	TotalSuggestions int               `json:"totalSuggestions"`
	ApprovedCount    int               `json:"approvedCount"`
	RejectedCount    int               `json:"rejectedCount"`
	Shortfall        int               `json:"shortfall"`
	SuggestionRounds []SuggestionRound `json:"suggestionRounds"`
	CurrentRound     int               `json:"currentRound"`
}
