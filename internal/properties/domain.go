// Package properties owns listings and the status rule engine that cascades
// listing transitions onto linked leads, calendar events and notifications.
package properties

import (
	"time"

	"github.com/google/uuid"
)

// Status is a listing's lifecycle stage.
type Status string

const (
	StatusAvailable     Status = "available"
	StatusPending       Status = "pending"
	StatusSold          Status = "sold"
	StatusRented        Status = "rented"
	StatusOffMarket     Status = "off_market"
	StatusInDevelopment Status = "in_development"
	StatusVacant        Status = "vacant"
)

var validStatuses = map[Status]struct{}{
	StatusAvailable:     {},
	StatusPending:       {},
	StatusSold:          {},
	StatusRented:        {},
	StatusOffMarket:     {},
	StatusInDevelopment: {},
	StatusVacant:        {},
}

// ValidStatus reports whether s is a known listing status.
func ValidStatus(s Status) bool {
	_, ok := validStatuses[s]
	return ok
}

// Offer types.
const (
	OfferSale = "sale"
	OfferRent = "rent"
)

// IsClosure reports whether the status closes the listing.
func IsClosure(s Status) bool {
	return s == StatusSold || s == StatusRented
}

// ReopensLeads reports whether a transition re-activates lost leads. Only the
// specific path closed-to-available does; pending or off_market going
// available must not.
func ReopensLeads(from, to Status) bool {
	return IsClosure(from) && to == StatusAvailable
}

// Property is a listing.
type Property struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Status         Status     `json:"status"`
	OfferType      string     `json:"offerType"`
	AgentID        uuid.UUID  `json:"agentId"`
	OwnerContactID *uuid.UUID `json:"ownerContactId,omitempty"`
	Segment        string     `json:"segment,omitempty"`
	Subtype        string     `json:"subtype,omitempty"`
	Price          *int64     `json:"price,omitempty"`
	Bedrooms       *int       `json:"bedrooms,omitempty"`
	Bathrooms      *int       `json:"bathrooms,omitempty"`
	AreaSqft       *int       `json:"areaSqft,omitempty"`
	Location       string     `json:"location,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Link roles on the contact-property join.
const (
	RoleOwner          = "owner"
	RoleBuyerInterest  = "buyer_interest"
	RoleTenantInterest = "tenant_interest"
)

// Link associates a contact (and via the shared id, its lead) with a listing.
type Link struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"propertyId"`
	ContactID  uuid.UUID `json:"contactId"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}
