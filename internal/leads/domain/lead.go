// Package domain holds the lead model and the pure rules of the sales
// pipeline: status vocabulary, the lead-to-contact status mapping, and
// interest tag derivation. Nothing here touches I/O.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a sales-pipeline record.
type Lead struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Status         Status    `json:"status"`
	Priority       string    `json:"priority"`
	ContactStatus  string    `json:"contactStatus"`
	AgentID        uuid.UUID `json:"agentId"`
	Source         string    `json:"source,omitempty"`
	Segment        string    `json:"segment,omitempty"`
	Subtype        string    `json:"subtype,omitempty"`
	Bedrooms       *int      `json:"bedrooms,omitempty"`
	SaleBudgetBand string    `json:"saleBudgetBand,omitempty"`
	RentBudgetBand string    `json:"rentBudgetBand,omitempty"`
	SizeBand       string    `json:"sizeBand,omitempty"`
	Location       string    `json:"location,omitempty"`
	InterestTags   []string  `json:"interestTags"`
	Notes          string    `json:"notes,omitempty"`
	Score          int       `json:"score"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// HasTag reports whether the lead already carries the interest tag.
func (l Lead) HasTag(tag string) bool {
	for _, t := range l.InterestTags {
		if t == tag {
			return true
		}
	}
	return false
}
