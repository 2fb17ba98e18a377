// Package calendar owns calendar events and tasks: agent-created viewings
// plus the derived follow-ups and review tasks the automation engine plants.
package calendar

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
	opCreate              = "calendar.repository.create"
	opGet                 = "calendar.repository.get"
	opList                = "calendar.repository.list"
	opComplete            = "calendar.repository.complete"
	opCompleteForProperty = "calendar.repository.complete_open_for_property"
)

// Event types.
const (
	TypeFollowUp = "follow_up"
	TypeViewing  = "viewing"
	TypeTask     = "task"
)

// Event statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Event is a calendar entry. Derived entries carry the lead or property that
// triggered them.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	DueAt       time.Time  `json:"dueAt"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	PropertyID  *uuid.UUID `json:"propertyId,omitempty"`
	AgentID     uuid.UUID  `json:"agentId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateParams are the inputs for inserting an event.
type CreateParams struct {
	Title       string
	Description string
	Type        string
	DueAt       time.Time
	LeadID      *uuid.UUID
	PropertyID  *uuid.UUID
	AgentID     uuid.UUID
}

const eventColumns = `id, title, description, type, status, due_at, lead_id, property_id, agent_id, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Event, error) {
	if r == nil || r.pool == nil {
		return Event{}, apperr.Internal("calendar repository not configured").WithOp(opCreate)
	}
	if p.Title == "" || p.Type == "" {
		return Event{}, apperr.Validation("title and type are required").WithOp(opCreate)
	}
	if p.AgentID == uuid.Nil {
		return Event{}, apperr.Validation("agentId is required").WithOp(opCreate)
	}

	var e Event
	err := r.pool.QueryRow(ctx, `
		INSERT INTO calendar_events (title, description, type, status, due_at, lead_id, property_id, agent_id)
		VALUES ($1, $2, $3, 'scheduled', $4, $5, $6, $7)
		RETURNING `+eventColumns+`
	`, p.Title, p.Description, p.Type, p.DueAt, p.LeadID, p.PropertyID, p.AgentID).Scan(scanEvent(&e)...)
	if err != nil {
		return Event{}, apperr.Internal(fmt.Sprintf("create calendar event failed: %v", err)).WithOp(opCreate)
	}

	return e, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Event, error) {
	if r == nil || r.pool == nil {
		return Event{}, apperr.Internal("calendar repository not configured").WithOp(opGet)
	}

	var e Event
	err := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = $1`, id).Scan(scanEvent(&e)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, apperr.NotFound("calendar event not found").WithOp(opGet)
	}
	if err != nil {
		return Event{}, apperr.Internal(fmt.Sprintf("get calendar event failed: %v", err)).WithOp(opGet)
	}

	return e, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	AgentID uuid.UUID
	LeadID  *uuid.UUID
	Status  string
	From    *time.Time
	To      *time.Time
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Event, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal("calendar repository not configured").WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE ($1::uuid = '00000000-0000-0000-0000-000000000000' OR agent_id = $1)
		  AND ($2::uuid IS NULL OR lead_id = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::timestamptz IS NULL OR due_at >= $4)
		  AND ($5::timestamptz IS NULL OR due_at <= $5)
		ORDER BY due_at ASC
		LIMIT $6 OFFSET $7
	`, filter.AgentID, filter.LeadID, filter.Status, filter.From, filter.To, limit, offset)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list calendar events failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		if scanErr := rows.Scan(scanEvent(&e)...); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan calendar event failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, e)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate calendar events failed: %v", rowsErr)).WithOp(opList)
	}

	return items, nil
}

// SetStatus moves an event to the given status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) (Event, error) {
	if r == nil || r.pool == nil {
		return Event{}, apperr.Internal("calendar repository not configured").WithOp(opComplete)
	}

	var e Event
	err := r.pool.QueryRow(ctx, `
		UPDATE calendar_events SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+eventColumns+`
	`, id, status).Scan(scanEvent(&e)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, apperr.NotFound("calendar event not found").WithOp(opComplete)
	}
	if err != nil {
		return Event{}, apperr.Internal(fmt.Sprintf("set calendar event status failed: %v", err)).WithOp(opComplete)
	}

	return e, nil
}

// CompleteOpenForProperty closes every still-scheduled event attached to the
// property and returns how many were closed. Used by the property closure
// cascade.
func (r *Repository) CompleteOpenForProperty(ctx context.Context, propertyID uuid.UUID) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal("calendar repository not configured").WithOp(opCompleteForProperty)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE calendar_events SET status = 'completed', updated_at = now()
		WHERE property_id = $1 AND status = 'scheduled'
	`, propertyID)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("complete open events failed: %v", err)).WithOp(opCompleteForProperty)
	}

	return int(tag.RowsAffected()), nil
}

func scanEvent(e *Event) []any {
	return []any{
		&e.ID, &e.Title, &e.Description, &e.Type, &e.Status, &e.DueAt,
		&e.LeadID, &e.PropertyID, &e.AgentID, &e.CreatedAt, &e.UpdatedAt,
	}
}
