// Package documents stores listing paperwork (title deeds, contracts, floor
// plans) in object storage with metadata rows in Postgres.
package documents

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
	opCreate = "documents.repository.create"
	opGet    = "documents.repository.get"
	opList   = "documents.repository.list"
	opDelete = "documents.repository.delete"
)

// Document is the metadata row for one stored object.
type Document struct {
	ID          uuid.UUID `json:"id"`
	PropertyID  uuid.UUID `json:"propertyId"`
	FileName    string    `json:"fileName"`
	ObjectKey   string    `json:"-"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedBy  uuid.UUID `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, property_id, file_name, object_key, content_type, size_bytes, uploaded_by, created_at`

func (r *Repository) Create(ctx context.Context, d Document) (Document, error) {
	if r == nil || r.pool == nil {
		return Document{}, apperr.Internal("documents repository not configured").WithOp(opCreate)
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO property_documents (property_id, file_name, object_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+documentColumns+`
	`, d.PropertyID, d.FileName, d.ObjectKey, d.ContentType, d.SizeBytes, d.UploadedBy).Scan(
		&d.ID, &d.PropertyID, &d.FileName, &d.ObjectKey, &d.ContentType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt,
	)
	if err != nil {
		return Document{}, apperr.Internal(fmt.Sprintf("create document failed: %v", err)).WithOp(opCreate)
	}

	return d, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Document, error) {
	if r == nil || r.pool == nil {
		return Document{}, apperr.Internal("documents repository not configured").WithOp(opGet)
	}

	var d Document
	err := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM property_documents WHERE id = $1`, id).Scan(
		&d.ID, &d.PropertyID, &d.FileName, &d.ObjectKey, &d.ContentType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, apperr.NotFound("document not found").WithOp(opGet)
	}
	if err != nil {
		return Document{}, apperr.Internal(fmt.Sprintf("get document failed: %v", err)).WithOp(opGet)
	}

	return d, nil
}

func (r *Repository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Document, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal("documents repository not configured").WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+` FROM property_documents
		WHERE property_id = $1
		ORDER BY created_at DESC
	`, propertyID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list documents failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	var items []Document
	for rows.Next() {
		var d Document
		if scanErr := rows.Scan(&d.ID, &d.PropertyID, &d.FileName, &d.ObjectKey, &d.ContentType,
			&d.SizeBytes, &d.UploadedBy, &d.CreatedAt); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan document failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, d)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate documents failed: %v", rowsErr)).WithOp(opList)
	}

	return items, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal("documents repository not configured").WithOp(opDelete)
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM property_documents WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("delete document failed: %v", err)).WithOp(opDelete)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("document not found").WithOp(opDelete)
	}

	return nil
}
