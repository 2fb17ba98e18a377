// Package activity provides the append-only audit trail for the automation
// engine. Entries are never updated or deleted.
package activity

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
	opCreate = "activity.repository.create"
	opList   = "activity.repository.list"
)

// Entry is a single immutable activity log record. The optional links
// cross-post the entry onto every entity involved in the operation.
type Entry struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	PropertyID  *uuid.UUID `json:"propertyId,omitempty"`
	ContactID   *uuid.UUID `json:"contactId,omitempty"`
	CreatedBy   uuid.UUID  `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CreateParams are the inputs for appending an entry.
type CreateParams struct {
	Type        string
	Description string
	LeadID      *uuid.UUID
	PropertyID  *uuid.UUID
	ContactID   *uuid.UUID
	CreatedBy   uuid.UUID
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Entry, error) {
	if r == nil || r.pool == nil {
		return Entry{}, apperr.Internal("activity repository not configured").WithOp(opCreate)
	}
	if p.Type == "" || p.Description == "" {
		return Entry{}, apperr.Validation("type and description are required").WithOp(opCreate)
	}
	if p.CreatedBy == uuid.Nil {
		return Entry{}, apperr.Validation("createdBy is required").WithOp(opCreate)
	}

	var e Entry
	err := r.pool.QueryRow(ctx, `
		INSERT INTO activities (type, description, lead_id, property_id, contact_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, type, description, lead_id, property_id, contact_id, created_by, created_at
	`, p.Type, p.Description, p.LeadID, p.PropertyID, p.ContactID, p.CreatedBy).Scan(
		&e.ID, &e.Type, &e.Description, &e.LeadID, &e.PropertyID, &e.ContactID, &e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		return Entry{}, apperr.Internal(fmt.Sprintf("create activity failed: %v", err)).WithOp(opCreate)
	}

	return e, nil
}

// ListFilter narrows List to entries linked to a given entity.
type ListFilter struct {
	LeadID     *uuid.UUID
	PropertyID *uuid.UUID
	ContactID  *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Entry, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal("activity repository not configured").WithOp(opList)
	}

	query := `
		SELECT id, type, description, lead_id, property_id, contact_id, created_by, created_at
		FROM activities
		WHERE ($1::uuid IS NULL OR lead_id = $1)
		  AND ($2::uuid IS NULL OR property_id = $2)
		  AND ($3::uuid IS NULL OR contact_id = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.pool.Query(ctx, query, filter.LeadID, filter.PropertyID, filter.ContactID, limit, offset)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list activities failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if scanErr := rows.Scan(&e.ID, &e.Type, &e.Description, &e.LeadID, &e.PropertyID, &e.ContactID, &e.CreatedBy, &e.CreatedAt); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan activities failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, e)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate activities failed: %v", rowsErr)).WithOp(opList)
	}

	return items, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx, `
		SELECT id, type, description, lead_id, property_id, contact_id, created_by, created_at
		FROM activities WHERE id = $1
	`, id).Scan(&e.ID, &e.Type, &e.Description, &e.LeadID, &e.PropertyID, &e.ContactID, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, apperr.NotFound("activity not found")
	}
	return e, err
}
