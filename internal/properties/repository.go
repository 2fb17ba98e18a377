package properties

import (
	"context"
	"errors"
	"fmt"

	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate       = "properties.repository.create"
	opGet          = "properties.repository.get"
	opList         = "properties.repository.list"
	opUpdateStatus = "properties.repository.update_status"
	opSetOwner     = "properties.repository.set_owner"
	opLink         = "properties.repository.link_contact"
	opListLinks    = "properties.repository.list_links"
)

const propertyColumns = `id, title, status, offer_type, agent_id, owner_contact_id,
	segment, subtype, price, bedrooms, bathrooms, area_sqft, location, created_at, updated_at`

// CreateParams are the inputs for inserting a listing.
type CreateParams struct {
	Title     string
	Status    Status
	OfferType string
	AgentID   uuid.UUID
	Segment   string
	Subtype   string
	Price     *int64
	Bedrooms  *int
	Bathrooms *int
	AreaSqft  *int
	Location  string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Property, error) {
	if r == nil || r.pool == nil {
		return Property{}, apperr.Internal("properties repository not configured").WithOp(opCreate)
	}
	if p.Title == "" {
		return Property{}, apperr.Validation("title is required").WithOp(opCreate)
	}
	if p.OfferType != OfferSale && p.OfferType != OfferRent {
		return Property{}, apperr.Validation("offerType must be sale or rent").WithOp(opCreate)
	}
	if p.Status == "" {
		p.Status = StatusAvailable
	}

	var prop Property
	err := r.pool.QueryRow(ctx, `
		INSERT INTO properties (title, status, offer_type, agent_id, segment, subtype,
			price, bedrooms, bathrooms, area_sqft, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+propertyColumns+`
	`, p.Title, p.Status, p.OfferType, p.AgentID, p.Segment, p.Subtype,
		p.Price, p.Bedrooms, p.Bathrooms, p.AreaSqft, p.Location).Scan(scanProperty(&prop)...)
	if err != nil {
		return Property{}, apperr.Internal(fmt.Sprintf("create property failed: %v", err)).WithOp(opCreate)
	}

	return prop, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Property, error) {
	if r == nil || r.pool == nil {
		return Property{}, apperr.Internal("properties repository not configured").WithOp(opGet)
	}

	var prop Property
	err := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id).Scan(scanProperty(&prop)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, apperr.NotFound("property not found").WithOp(opGet)
	}
	if err != nil {
		return Property{}, apperr.Internal(fmt.Sprintf("get property failed: %v", err)).WithOp(opGet)
	}

	return prop, nil
}

// UpdateStatus writes the new status and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Property, error) {
	if r == nil || r.pool == nil {
		return Property{}, apperr.Internal("properties repository not configured").WithOp(opUpdateStatus)
	}

	var prop Property
	err := r.pool.QueryRow(ctx, `
		UPDATE properties SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+propertyColumns+`
	`, id, status).Scan(scanProperty(&prop)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, apperr.NotFound("property not found").WithOp(opUpdateStatus)
	}
	if err != nil {
		return Property{}, apperr.Internal(fmt.Sprintf("update property status failed: %v", err)).WithOp(opUpdateStatus)
	}

	return prop, nil
}

// SetOwner points the listing at its owner contact.
func (r *Repository) SetOwner(ctx context.Context, id, ownerContactID uuid.UUID) (Property, error) {
	if r == nil || r.pool == nil {
		return Property{}, apperr.Internal("properties repository not configured").WithOp(opSetOwner)
	}

	var prop Property
	err := r.pool.QueryRow(ctx, `
		UPDATE properties SET owner_contact_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+propertyColumns+`
	`, id, ownerContactID).Scan(scanProperty(&prop)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, apperr.NotFound("property not found").WithOp(opSetOwner)
	}
	if err != nil {
		return Property{}, apperr.Internal(fmt.Sprintf("set property owner failed: %v", err)).WithOp(opSetOwner)
	}

	return prop, nil
}

// LinkContact records a role between a contact and the listing. Re-linking
// the same contact with the same role is a no-op.
func (r *Repository) LinkContact(ctx context.Context, propertyID, contactID uuid.UUID, role string) (Link, error) {
	if r == nil || r.pool == nil {
		return Link{}, apperr.Internal("properties repository not configured").WithOp(opLink)
	}

	var l Link
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contact_property_links (property_id, contact_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id, contact_id, role) DO UPDATE SET role = EXCLUDED.role
		RETURNING id, property_id, contact_id, role, created_at
	`, propertyID, contactID, role).Scan(&l.ID, &l.PropertyID, &l.ContactID, &l.Role, &l.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Link{}, apperr.NotFound("property or contact not found").WithOp(opLink)
		}
		return Link{}, apperr.Internal(fmt.Sprintf("link contact failed: %v", err)).WithOp(opLink)
	}

	return l, nil
}

// ListLinks returns every contact linked to the listing.
func (r *Repository) ListLinks(ctx context.Context, propertyID uuid.UUID) ([]Link, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal("properties repository not configured").WithOp(opListLinks)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, property_id, contact_id, role, created_at
		FROM contact_property_links
		WHERE property_id = $1
		ORDER BY created_at ASC
	`, propertyID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list links failed: %v", err)).WithOp(opListLinks)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if scanErr := rows.Scan(&l.ID, &l.PropertyID, &l.ContactID, &l.Role, &l.CreatedAt); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan link failed: %v", scanErr)).WithOp(opListLinks)
		}
		links = append(links, l)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate links failed: %v", rowsErr)).WithOp(opListLinks)
	}

	return links, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	AgentID   uuid.UUID
	Status    Status
	OfferType string
	Search    string
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Property, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal("properties repository not configured").WithOp(opList)
	}

	where := `
		WHERE ($1::uuid = '00000000-0000-0000-0000-000000000000' OR agent_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR offer_type = $3)
		  AND ($4 = '' OR title ILIKE '%' || $4 || '%' OR location ILIKE '%' || $4 || '%')
	`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM properties `+where,
		filter.AgentID, string(filter.Status), filter.OfferType, filter.Search).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count properties failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+propertyColumns+` FROM properties `+where+`
		ORDER BY updated_at DESC
		LIMIT $5 OFFSET $6
	`, filter.AgentID, string(filter.Status), filter.OfferType, filter.Search, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list properties failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Property, 0, limit)
	for rows.Next() {
		var prop Property
		if scanErr := rows.Scan(scanProperty(&prop)...); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan property failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, prop)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate properties failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func scanProperty(p *Property) []any {
	return []any{
		&p.ID, &p.Title, &p.Status, &p.OfferType, &p.AgentID, &p.OwnerContactID,
		&p.Segment, &p.Subtype, &p.Price, &p.Bedrooms, &p.Bathrooms, &p.AreaSqft,
		&p.Location, &p.CreatedAt, &p.UpdatedAt,
	}
}
