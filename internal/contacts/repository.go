// Package contacts maintains the person-centric view derived from leads.
// A contact shares its id with the lead it originated from, so the two
// stay addressable by a single identifier.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opUpsert = "contacts.repository.upsert"
	opGet    = "contacts.repository.get"
	opList   = "contacts.repository.list"
	opFind   = "contacts.repository.find_by_identity"
)

// Lifecycle values for a contact.
const (
	StatusActive = "active"
	StatusPast   = "past"
)

// Preferences captures what a contact is looking for, split by offer type.
type Preferences struct {
	Segment    string `json:"segment,omitempty"`
	Subtype    string `json:"subtype,omitempty"`
	Bedrooms   *int   `json:"bedrooms,omitempty"`
	Location   string `json:"location,omitempty"`
	BudgetBand string `json:"budgetBand,omitempty"`
}

// Contact is the person view of a lead or property owner.
type Contact struct {
	ID                uuid.UUID    `json:"id"`
	Name              string       `json:"name"`
	Email             *string      `json:"email,omitempty"`
	Phone             *string      `json:"phone,omitempty"`
	StatusEffective   string       `json:"statusEffective"`
	ContactStatus     string       `json:"contactStatus"`
	BudgetMin         *int64       `json:"budgetMin,omitempty"`
	BudgetMax         *int64       `json:"budgetMax,omitempty"`
	BuyerPreferences  *Preferences `json:"buyerPreferences,omitempty"`
	TenantPreferences *Preferences `json:"tenantPreferences,omitempty"`
	AgentID           uuid.UUID    `json:"agentId"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// UpsertParams is the full contact state written by the synchronizer.
// Upserts are keyed by id, so repeating the same params is idempotent.
type UpsertParams struct {
	ID                uuid.UUID
	Name              string
	Email             *string
	Phone             *string
	StatusEffective   string
	ContactStatus     string
	BudgetMin         *int64
	BudgetMax         *int64
	BuyerPreferences  *Preferences
	TenantPreferences *Preferences
	AgentID           uuid.UUID
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const contactColumns = `id, name, email, phone, status_effective, contact_status,
	budget_min, budget_max, buyer_preferences, tenant_preferences, agent_id, created_at, updated_at`

func (r *Repository) Upsert(ctx context.Context, p UpsertParams) (Contact, error) {
	if r == nil || r.pool == nil {
		return Contact{}, apperr.Internal("contacts repository not configured").WithOp(opUpsert)
	}
	if p.ID == uuid.Nil || p.AgentID == uuid.Nil {
		return Contact{}, apperr.Validation("id and agentId are required").WithOp(opUpsert)
	}

	var c Contact
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (id, name, email, phone, status_effective, contact_status,
			budget_min, budget_max, buyer_preferences, tenant_preferences, agent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			status_effective = EXCLUDED.status_effective,
			contact_status = EXCLUDED.contact_status,
			budget_min = EXCLUDED.budget_min,
			budget_max = EXCLUDED.budget_max,
			buyer_preferences = EXCLUDED.buyer_preferences,
			tenant_preferences = EXCLUDED.tenant_preferences,
			updated_at = now()
		RETURNING `+contactColumns+`
	`, p.ID, p.Name, p.Email, p.Phone, p.StatusEffective, p.ContactStatus,
		p.BudgetMin, p.BudgetMax, p.BuyerPreferences, p.TenantPreferences, p.AgentID).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.StatusEffective, &c.ContactStatus,
		&c.BudgetMin, &c.BudgetMax, &c.BuyerPreferences, &c.TenantPreferences,
		&c.AgentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Contact{}, apperr.Internal(fmt.Sprintf("upsert contact failed: %v", err)).WithOp(opUpsert)
	}

	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Contact, error) {
	if r == nil || r.pool == nil {
		return Contact{}, apperr.Internal("contacts repository not configured").WithOp(opGet)
	}

	var c Contact
	err := r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.StatusEffective, &c.ContactStatus,
		&c.BudgetMin, &c.BudgetMax, &c.BuyerPreferences, &c.TenantPreferences,
		&c.AgentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, apperr.NotFound("contact not found").WithOp(opGet)
	}
	if err != nil {
		return Contact{}, apperr.Internal(fmt.Sprintf("get contact failed: %v", err)).WithOp(opGet)
	}

	return c, nil
}

// FindByIdentity returns the contact matching the given email or phone,
// preferring the email match. Both arguments may be empty.
func (r *Repository) FindByIdentity(ctx context.Context, email, phone string) (*Contact, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal("contacts repository not configured").WithOp(opFind)
	}
	if email == "" && phone == "" {
		return nil, nil
	}

	var c Contact
	err := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE ($1 <> '' AND lower(email) = lower($1))
		   OR ($2 <> '' AND phone = $2)
		ORDER BY (lower(email) = lower($1)) DESC, created_at ASC
		LIMIT 1
	`, email, phone).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.StatusEffective, &c.ContactStatus,
		&c.BudgetMin, &c.BudgetMax, &c.BuyerPreferences, &c.TenantPreferences,
		&c.AgentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("find contact failed: %v", err)).WithOp(opFind)
	}

	return &c, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	AgentID         uuid.UUID
	StatusEffective string
	Search          string
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Contact, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal("contacts repository not configured").WithOp(opList)
	}

	where := `
		WHERE ($1::uuid = '00000000-0000-0000-0000-000000000000' OR agent_id = $1)
		  AND ($2 = '' OR status_effective = $2)
		  AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR email ILIKE '%' || $3 || '%' OR phone ILIKE '%' || $3 || '%')
	`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM contacts `+where,
		filter.AgentID, filter.StatusEffective, filter.Search).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count contacts failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts `+where+`
		ORDER BY updated_at DESC
		LIMIT $4 OFFSET $5
	`, filter.AgentID, filter.StatusEffective, filter.Search, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list contacts failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Contact, 0, limit)
	for rows.Next() {
		var c Contact
		if scanErr := rows.Scan(
			&c.ID, &c.Name, &c.Email, &c.Phone, &c.StatusEffective, &c.ContactStatus,
			&c.BudgetMin, &c.BudgetMax, &c.BuyerPreferences, &c.TenantPreferences,
			&c.AgentID, &c.CreatedAt, &c.UpdatedAt,
		); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan contact failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, c)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate contacts failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}
