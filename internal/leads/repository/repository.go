// Package repository provides Postgres persistence for leads.
package repository

import (
	"context"
	"errors"
	"fmt"

	"estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate       = "leads.repository.create"
	opGet          = "leads.repository.get"
	opList         = "leads.repository.list"
	opFind         = "leads.repository.find_by_identity"
	opUpdateStatus = "leads.repository.update_status"
	opAddTag       = "leads.repository.add_interest_tag"
	opUpdate       = "leads.repository.update"
	opListByIDs    = "leads.repository.list_by_ids"
)

const leadColumns = `id, name, email, phone, status, priority, contact_status, agent_id, source,
	segment, subtype, bedrooms, sale_budget_band, rent_budget_band, size_band, location,
	interest_tags, notes, score, created_at, updated_at`

// CreateParams are the inputs for inserting a lead. AgentID always comes from
// the authenticated actor, never from a client payload.
type CreateParams struct {
	Name           string
	Email          *string
	Phone          *string
	Status         domain.Status
	Priority       string
	ContactStatus  string
	AgentID        uuid.UUID
	Source         string
	Segment        string
	Subtype        string
	Bedrooms       *int
	SaleBudgetBand string
	RentBudgetBand string
	SizeBand       string
	Location       string
	InterestTags   []string
	Notes          string
	Score          int
}

// UpdateParams are the mutable descriptive fields. Status changes go through
// UpdateStatus so the contact_status invariant cannot be bypassed.
type UpdateParams struct {
	Name           *string
	Email          *string
	Phone          *string
	Priority       *string
	Source         *string
	Segment        *string
	Subtype        *string
	Bedrooms       *int
	SaleBudgetBand *string
	RentBudgetBand *string
	SizeBand       *string
	Location       *string
	Notes          *string
	Score          *int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (domain.Lead, error) {
	if r == nil || r.pool == nil {
		return domain.Lead{}, apperr.Internal("leads repository not configured").WithOp(opCreate)
	}

	tags := p.InterestTags
	if tags == nil {
		tags = []string{}
	}

	var l domain.Lead
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, email, phone, status, priority, contact_status, agent_id, source,
			segment, subtype, bedrooms, sale_budget_band, rent_budget_band, size_band, location,
			interest_tags, notes, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+leadColumns+`
	`, p.Name, p.Email, p.Phone, p.Status, p.Priority, p.ContactStatus, p.AgentID, p.Source,
		p.Segment, p.Subtype, p.Bedrooms, p.SaleBudgetBand, p.RentBudgetBand, p.SizeBand, p.Location,
		tags, p.Notes, p.Score).Scan(scanTargets(&l)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Lead{}, apperr.Conflict("a lead with this identity already exists").WithOp(opCreate)
		}
		return domain.Lead{}, apperr.Internal(fmt.Sprintf("create lead failed: %v", err)).WithOp(opCreate)
	}

	return l, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	if r == nil || r.pool == nil {
		return domain.Lead{}, apperr.Internal("leads repository not configured").WithOp(opGet)
	}

	var l domain.Lead
	err := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id).Scan(scanTargets(&l)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(opGet)
	}
	if err != nil {
		return domain.Lead{}, apperr.Internal(fmt.Sprintf("get lead failed: %v", err)).WithOp(opGet)
	}

	return l, nil
}

// FindByIdentity returns the oldest lead matching the email or phone, with
// email matches ranked ahead of phone matches. The search is limited to the
// resolving agent's book: agent_id is the visibility boundary, so another
// agent's lead never absorbs this agent's enquiry. Used by the dedup
// resolver: first match wins and the existing row is kept verbatim.
func (r *Repository) FindByIdentity(ctx context.Context, email, phone string, agentID uuid.UUID) (*domain.Lead, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal("leads repository not configured").WithOp(opFind)
	}
	if email == "" && phone == "" {
		return nil, nil
	}

	var l domain.Lead
	err := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE agent_id = $3
		  AND (($1 <> '' AND lower(email) = lower($1))
		   OR ($2 <> '' AND phone = $2))
		ORDER BY (lower(email) = lower($1)) DESC, created_at ASC
		LIMIT 1
	`, email, phone, agentID).Scan(scanTargets(&l)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("find lead failed: %v", err)).WithOp(opFind)
	}

	return &l, nil
}

// UpdateStatus writes the pipeline status together with its derived contact
// lifecycle value in a single statement so the two can never diverge.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, contactStatus string) (domain.Lead, error) {
	if r == nil || r.pool == nil {
		return domain.Lead{}, apperr.Internal("leads repository not configured").WithOp(opUpdateStatus)
	}

	var l domain.Lead
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, contact_status = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id, status, contactStatus).Scan(scanTargets(&l)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(opUpdateStatus)
	}
	if err != nil {
		return domain.Lead{}, apperr.Internal(fmt.Sprintf("update lead status failed: %v", err)).WithOp(opUpdateStatus)
	}

	return l, nil
}

// AddInterestTag appends the tag to interest_tags unless already present.
// Returns the lead and whether the tag was actually added, making repeated
// calls idempotent.
func (r *Repository) AddInterestTag(ctx context.Context, id uuid.UUID, tag string) (domain.Lead, bool, error) {
	if r == nil || r.pool == nil {
		return domain.Lead{}, false, apperr.Internal("leads repository not configured").WithOp(opAddTag)
	}

	var l domain.Lead
	var added bool
	err := r.pool.QueryRow(ctx, `
		WITH before AS (
			SELECT interest_tags FROM leads WHERE id = $1
		)
		UPDATE leads SET
			interest_tags = CASE WHEN $2 = ANY(leads.interest_tags) THEN leads.interest_tags ELSE array_append(leads.interest_tags, $2) END,
			updated_at = CASE WHEN $2 = ANY(leads.interest_tags) THEN leads.updated_at ELSE now() END
		FROM before
		WHERE leads.id = $1
		RETURNING leads.id, leads.name, leads.email, leads.phone, leads.status, leads.priority,
			leads.contact_status, leads.agent_id, leads.source, leads.segment, leads.subtype,
			leads.bedrooms, leads.sale_budget_band, leads.rent_budget_band, leads.size_band,
			leads.location, leads.interest_tags, leads.notes, leads.score, leads.created_at,
			leads.updated_at, NOT ($2 = ANY(before.interest_tags))
	`, id, tag).Scan(append(scanTargets(&l), &added)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, false, apperr.NotFound("lead not found").WithOp(opAddTag)
	}
	if err != nil {
		return domain.Lead{}, false, apperr.Internal(fmt.Sprintf("add interest tag failed: %v", err)).WithOp(opAddTag)
	}

	return l, added, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (domain.Lead, error) {
	if r == nil || r.pool == nil {
		return domain.Lead{}, apperr.Internal("leads repository not configured").WithOp(opUpdate)
	}

	var l domain.Lead
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			priority = COALESCE($5, priority),
			source = COALESCE($6, source),
			segment = COALESCE($7, segment),
			subtype = COALESCE($8, subtype),
			bedrooms = COALESCE($9, bedrooms),
			sale_budget_band = COALESCE($10, sale_budget_band),
			rent_budget_band = COALESCE($11, rent_budget_band),
			size_band = COALESCE($12, size_band),
			location = COALESCE($13, location),
			notes = COALESCE($14, notes),
			score = COALESCE($15, score),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id, p.Name, p.Email, p.Phone, p.Priority, p.Source, p.Segment, p.Subtype, p.Bedrooms,
		p.SaleBudgetBand, p.RentBudgetBand, p.SizeBand, p.Location, p.Notes, p.Score).Scan(scanTargets(&l)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(opUpdate)
	}
	if err != nil {
		return domain.Lead{}, apperr.Internal(fmt.Sprintf("update lead failed: %v", err)).WithOp(opUpdate)
	}

	return l, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	AgentID uuid.UUID
	Status  domain.Status
	Search  string
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]domain.Lead, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal("leads repository not configured").WithOp(opList)
	}

	where := `
		WHERE ($1::uuid = '00000000-0000-0000-0000-000000000000' OR agent_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR email ILIKE '%' || $3 || '%' OR phone ILIKE '%' || $3 || '%')
	`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads `+where,
		filter.AgentID, string(filter.Status), filter.Search).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count leads failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads `+where+`
		ORDER BY updated_at DESC
		LIMIT $4 OFFSET $5
	`, filter.AgentID, string(filter.Status), filter.Search, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list leads failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]domain.Lead, 0, limit)
	for rows.Next() {
		var l domain.Lead
		if scanErr := rows.Scan(scanTargets(&l)...); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan lead failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, l)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate leads failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

// ListByIDs fetches the given leads in one round trip. Used by the property
// closure cascade to inspect linked leads before fanning out.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal("leads repository not configured").WithOp(opListByIDs)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list leads by ids failed: %v", err)).WithOp(opListByIDs)
	}
	defer rows.Close()

	items := make([]domain.Lead, 0, len(ids))
	for rows.Next() {
		var l domain.Lead
		if scanErr := rows.Scan(scanTargets(&l)...); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan lead failed: %v", scanErr)).WithOp(opListByIDs)
		}
		items = append(items, l)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate leads failed: %v", rowsErr)).WithOp(opListByIDs)
	}

	return items, nil
}

func scanTargets(l *domain.Lead) []any {
	return []any{
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Status, &l.Priority, &l.ContactStatus, &l.AgentID, &l.Source,
		&l.Segment, &l.Subtype, &l.Bedrooms, &l.SaleBudgetBand, &l.RentBudgetBand, &l.SizeBand, &l.Location,
		&l.InterestTags, &l.Notes, &l.Score, &l.CreatedAt, &l.UpdatedAt,
	}
}
