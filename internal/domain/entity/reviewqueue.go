package entity

import "time"

// ReviewStatus is the lifecycle state of a queued summary review.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusEdited   ReviewStatus = "edited"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ReviewQueueEntry is a flagged AI summary awaiting editor disposition.
// Entries are created when the summarizer's repair pass still can't land
// the summary inside [entity.MinSummaryWords, entity.MaxSummaryWords], or
// when the AI call fails outright.
type ReviewQueueEntry struct {
	ID              int64
	ItemID          string
	Status          ReviewStatus
	Reason          string
	Reviewer        string
	ReviewedAt      *time.Time
	ReviewedSummary string
	Note            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate validates the ReviewQueueEntry entity's required fields.
func (r *ReviewQueueEntry) Validate() error {
	if r.ItemID == "" {
		return &ValidationError{Field: "item_id", Message: "item_id is required"}
	}
	if r.Reason == "" {
		return &ValidationError{Field: "reason", Message: "reason is required"}
	}
	validStatuses := map[ReviewStatus]bool{
		ReviewStatusPending:  true,
		ReviewStatusApproved: true,
		ReviewStatusEdited:   true,
		ReviewStatusRejected: true,
	}
	if r.Status == "" {
		r.Status = ReviewStatusPending
	}
	if !validStatuses[r.Status] {
		return &ValidationError{Field: "status", Message: "invalid review status"}
	}
	// Edited summaries are operator overrides: exempt from the auto-generation
	// word-count invariant, which only binds the generation path itself.
	if r.Status == ReviewStatusEdited && r.ReviewedSummary == "" {
		return &ValidationError{Field: "reviewed_summary", Message: "reviewed_summary is required when status is edited"}
	}
	return nil
}
