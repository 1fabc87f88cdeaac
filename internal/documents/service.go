package documents

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/aegis-iam/aegis/internal/shared"
)

// RepositoryPort defines data access methods for document metadata.
type RepositoryPort interface {
	ListDocuments(ctx context.Context, limit, offset int) ([]Document, int, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	CreateDocument(ctx context.Context, doc Document) (Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Service handles the document upload registry: file-type validation, content
// storage and metadata bookkeeping. Text extraction and indexing of the
// stored files happen downstream and are not this service's concern.
type Service struct {
	repo  RepositoryPort
	store Store
	audit shared.AuditRecorder
}

// NewService builds a Service instance. Audit may be nil.
func NewService(repo RepositoryPort, store Store, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, store: store, audit: audit}
}

// Upload validates the file type, stores the contents and records metadata.
func (s *Service) Upload(ctx context.Context, actorID int64, title, description, fileName, contentType string, contents io.Reader) (Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Document{}, fmt.Errorf("%w: title required", shared.ErrValidation)
	}
	fallbackType, ok := ValidExtension(fileName)
	if !ok {
		allowed := AllowedExtensions()
		sort.Strings(allowed)
		return Document{}, fmt.Errorf("%w: file type not allowed, accepted: %s",
			shared.ErrValidation, strings.Join(allowed, ", "))
	}
	if contentType == "" {
		contentType = fallbackType
	}

	// Server-generated stored name; the client filename never touches disk.
	id := uuid.NewString()
	storedName := id + strings.ToLower(filepath.Ext(fileName))
	size, err := s.store.Save(storedName, contents)
	if err != nil {
		return Document{}, err
	}

	doc, err := s.repo.CreateDocument(ctx, Document{
		ID:          id,
		OwnerID:     actorID,
		Title:       title,
		Description: strings.TrimSpace(description),
		FileName:    fileName,
		StoredName:  storedName,
		ContentType: contentType,
		SizeBytes:   size,
	})
	if err != nil {
		_ = s.store.Remove(storedName)
		return Document{}, err
	}
	s.record(ctx, actorID, "documents.uploaded", doc.ID, map[string]any{
		"title": doc.Title, "file_name": doc.FileName, "size_bytes": doc.SizeBytes,
	})
	return doc, nil
}

// ListDocuments returns one page of documents with pagination metadata.
func (s *Service) ListDocuments(ctx context.Context, page, perPage int) ([]Document, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	docs, total, err := s.repo.ListDocuments(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return docs, shared.NewPagination(page, perPage, total), nil
}

// GetDocument fetches one document's metadata.
func (s *Service) GetDocument(ctx context.Context, id string) (Document, error) {
	return s.repo.GetDocument(ctx, id)
}

// OpenDocument returns the metadata and a reader over the stored contents.
// The caller owns closing the reader.
func (s *Service) OpenDocument(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	contents, err := s.store.Open(doc.StoredName)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, contents, nil
}

// DeleteDocument removes the metadata row and the stored contents.
func (s *Service) DeleteDocument(ctx context.Context, actorID int64, id string) error {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	// Best effort; the registry row is already gone.
	_ = s.store.Remove(doc.StoredName)
	s.record(ctx, actorID, "documents.deleted", id, map[string]any{"file_name": doc.FileName})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, documentID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: documentID,
		Meta:     meta,
	})
}
