package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	opUpload      = "documents.service.upload"
	opDownloadURL = "documents.service.download_url"

	downloadURLExpiry = 15 * time.Minute
)

// ObjectStore is the object storage surface the service needs. Implemented
// by the MinIO-backed storage client.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error
	PresignedGetURL(ctx context.Context, bucket, object string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, bucket, object string) error
	MaxFileSize() int64
}

// ActivityLog is the best-effort audit sink.
type ActivityLog interface {
	Record(ctx context.Context, p activity.CreateParams)
}

// Notifier raises the upload notification.
type Notifier interface {
	DocumentUploaded(ctx context.Context, agentID, propertyID uuid.UUID, fileName string)
}

type Service struct {
	repo       *Repository
	store      ObjectStore
	activities ActivityLog
	notifier   Notifier
	bucket     string
}

func NewService(repo *Repository, store ObjectStore, activities ActivityLog, notifier Notifier, bucket string) *Service {
	return &Service{repo: repo, store: store, activities: activities, notifier: notifier, bucket: bucket}
}

// UploadParams describe one incoming file.
type UploadParams struct {
	PropertyID  uuid.UUID
	AgentID     uuid.UUID
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload streams the file into object storage, records the metadata row, and
// fans out the derived writes (audit entry, notification) best-effort.
func (s *Service) Upload(ctx context.Context, actorID uuid.UUID, p UploadParams) (Document, error) {
	if s.store == nil {
		return Document{}, apperr.Internal("object storage not configured").WithOp(opUpload)
	}
	if p.FileName == "" {
		return Document{}, apperr.Validation("file name is required").WithOp(opUpload)
	}
	if max := s.store.MaxFileSize(); max > 0 && p.Size > max {
		return Document{}, apperr.Validation(fmt.Sprintf("file exceeds the %d byte limit", max)).WithOp(opUpload)
	}

	objectKey := path.Join(p.PropertyID.String(), uuid.NewString()+"-"+path.Base(p.FileName))
	if err := s.store.Upload(ctx, s.bucket, objectKey, p.Body, p.Size, p.ContentType); err != nil {
		return Document{}, apperr.Wrap(apperr.KindInternal, "upload failed", err).WithOp(opUpload)
	}

	doc, err := s.repo.Create(ctx, Document{
		PropertyID:  p.PropertyID,
		FileName:    p.FileName,
		ObjectKey:   objectKey,
		ContentType: p.ContentType,
		SizeBytes:   p.Size,
		UploadedBy:  actorID,
	})
	if err != nil {
		// The object is orphaned if this cleanup fails; the bucket is
		// periodically reconciled against the metadata table.
		_ = s.store.Remove(ctx, s.bucket, objectKey)
		return Document{}, err
	}

	propertyID := p.PropertyID
	s.activities.Record(ctx, activity.CreateParams{
		Type:        "document_uploaded",
		Description: fmt.Sprintf("Document %q uploaded", p.FileName),
		PropertyID:  &propertyID,
		CreatedBy:   actorID,
	})
	s.notifier.DocumentUploaded(ctx, p.AgentID, p.PropertyID, p.FileName)

	return doc, nil
}

// DownloadURL returns a short-lived link for the document.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.store.PresignedGetURL(ctx, s.bucket, doc.ObjectKey, downloadURLExpiry)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "presign failed", err).WithOp(opDownloadURL)
	}
	return url, nil
}

func (s *Service) List(ctx context.Context, propertyID uuid.UUID) ([]Document, error) {
	return s.repo.ListByProperty(ctx, propertyID)
}

// Delete removes the metadata row and then the stored object.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.store.Remove(ctx, s.bucket, doc.ObjectKey)
}
