// Package transport defines the request/response shapes for the leads API.
package transport

import (
	"estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/internal/leads/management"
	"estate_crm_backend/internal/leads/repository"
)

// CreateLeadRequest is the payload for POST /leads. Note there is no agentId
// field: ownership always comes from the authenticated actor.
type CreateLeadRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=200"`
	Email          string   `json:"email" binding:"omitempty,email"`
	Phone          string   `json:"phone" binding:"omitempty,min=5,max=32"`
	Priority       string   `json:"priority" binding:"omitempty,oneof=low medium high"`
	Source         string   `json:"source" binding:"omitempty,max=100"`
	Segment        string   `json:"segment" binding:"omitempty,max=100"`
	Subtype        string   `json:"subtype" binding:"omitempty,max=100"`
	Bedrooms       *int     `json:"bedrooms" binding:"omitempty,min=0,max=50"`
	SaleBudgetBand string   `json:"saleBudgetBand" binding:"omitempty,max=100"`
	RentBudgetBand string   `json:"rentBudgetBand" binding:"omitempty,max=100"`
	SizeBand       string   `json:"sizeBand" binding:"omitempty,max=100"`
	Location       string   `json:"location" binding:"omitempty,max=200"`
	InterestTags   []string `json:"interestTags" binding:"omitempty,dive,oneof=Buyer Seller Landlord Tenant Investor"`
	Notes          string   `json:"notes" binding:"omitempty,max=4000"`
}

// ToParams converts the request to engine-level params.
func (r CreateLeadRequest) ToParams() management.CreateParams {
	return management.CreateParams{
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Priority:       r.Priority,
		Source:         r.Source,
		Segment:        r.Segment,
		Subtype:        r.Subtype,
		Bedrooms:       r.Bedrooms,
		SaleBudgetBand: r.SaleBudgetBand,
		RentBudgetBand: r.RentBudgetBand,
		SizeBand:       r.SizeBand,
		Location:       r.Location,
		InterestTags:   r.InterestTags,
		Notes:          r.Notes,
	}
}

// UpdateLeadRequest carries partial descriptive edits. Absent fields are
// left untouched.
type UpdateLeadRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=200"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Phone          *string `json:"phone" binding:"omitempty,min=5,max=32"`
	Priority       *string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Source         *string `json:"source" binding:"omitempty,max=100"`
	Segment        *string `json:"segment" binding:"omitempty,max=100"`
	Subtype        *string `json:"subtype" binding:"omitempty,max=100"`
	Bedrooms       *int    `json:"bedrooms" binding:"omitempty,min=0,max=50"`
	SaleBudgetBand *string `json:"saleBudgetBand" binding:"omitempty,max=100"`
	RentBudgetBand *string `json:"rentBudgetBand" binding:"omitempty,max=100"`
	SizeBand       *string `json:"sizeBand" binding:"omitempty,max=100"`
	Location       *string `json:"location" binding:"omitempty,max=200"`
	Notes          *string `json:"notes" binding:"omitempty,max=4000"`
	Score          *int    `json:"score" binding:"omitempty,min=0,max=100"`
}

func (r UpdateLeadRequest) ToParams() repository.UpdateParams {
	return repository.UpdateParams{
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Priority:       r.Priority,
		Source:         r.Source,
		Segment:        r.Segment,
		Subtype:        r.Subtype,
		Bedrooms:       r.Bedrooms,
		SaleBudgetBand: r.SaleBudgetBand,
		RentBudgetBand: r.RentBudgetBand,
		SizeBand:       r.SizeBand,
		Location:       r.Location,
		Notes:          r.Notes,
		Score:          r.Score,
	}
}

// ChangeStatusRequest moves a lead through the pipeline.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=new contacted qualified negotiating won lost"`
}

// AddTagRequest adds an interest tag.
type AddTagRequest struct {
	Tag string `json:"tag" binding:"required,oneof=Buyer Seller Landlord Tenant Investor"`
}

// CreateLeadResponse wraps the created or resolved lead.
type CreateLeadResponse struct {
	Lead    domain.Lead `json:"lead"`
	Created bool        `json:"created"`
}
