package documents_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aegis-iam/aegis/internal/documents"
	"github.com/aegis-iam/aegis/internal/shared"
	_ "github.com/aegis-iam/aegis/testing"
)

type memStore struct {
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (s *memStore) Save(name string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.files[name] = data
	return int64(len(data)), nil
}

func (s *memStore) Open(name string) (io.ReadCloser, error) {
	data, ok := s.files[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Remove(name string) error {
	delete(s.files, name)
	return nil
}

type stubRepo struct {
	docs map[string]documents.Document
}

func newStubRepo() *stubRepo {
	return &stubRepo{docs: map[string]documents.Document{}}
}

func (s *stubRepo) ListDocuments(ctx context.Context, limit, offset int) ([]documents.Document, int, error) {
	out := make([]documents.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, len(s.docs), nil
}

func (s *stubRepo) GetDocument(ctx context.Context, id string) (documents.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return documents.Document{}, shared.ErrNotFound
	}
	return doc, nil
}

func (s *stubRepo) CreateDocument(ctx context.Context, doc documents.Document) (documents.Document, error) {
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *stubRepo) DeleteDocument(ctx context.Context, id string) error {
	if _, ok := s.docs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.actions = append(r.actions, log.Action)
	return nil
}

func TestUploadStoresFileAndMetadata(t *testing.T) {
	store := newMemStore()
	audit := &recordingAudit{}
	svc := documents.NewService(newStubRepo(), store, audit)

	doc, err := svc.Upload(context.Background(), 7, "Q3 Report", "quarterly numbers",
		"report.pdf", "application/pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected a generated document id")
	}
	if doc.OwnerID != 7 || doc.FileName != "report.pdf" {
		t.Fatalf("unexpected metadata %+v", doc)
	}
	if doc.SizeBytes != int64(len("%PDF-1.4 fake")) {
		t.Fatalf("expected size to match stored bytes, got %d", doc.SizeBytes)
	}
	if len(store.files) != 1 {
		t.Fatalf("expected one stored file, got %d", len(store.files))
	}
	if !strings.HasSuffix(doc.StoredName, ".pdf") || strings.Contains(doc.StoredName, "report") {
		t.Fatalf("stored name must be server-generated, got %q", doc.StoredName)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "documents.uploaded" {
		t.Fatalf("expected documents.uploaded audit entry, got %v", audit.actions)
	}
}

func TestUploadRejectsDisallowedFileType(t *testing.T) {
	store := newMemStore()
	svc := documents.NewService(newStubRepo(), store, nil)

	for _, name := range []string{"malware.exe", "archive.zip", "noextension"} {
		_, err := svc.Upload(context.Background(), 7, "Title", "", name, "", strings.NewReader("data"))
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation for %q, got %v", name, err)
		}
	}
	if len(store.files) != 0 {
		t.Fatalf("rejected uploads must not reach storage")
	}
}

func TestUploadRequiresTitle(t *testing.T) {
	svc := documents.NewService(newStubRepo(), newMemStore(), nil)
	_, err := svc.Upload(context.Background(), 7, "   ", "", "notes.txt", "", strings.NewReader("data"))
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank title, got %v", err)
	}
}

func TestUploadFallsBackToExtensionContentType(t *testing.T) {
	svc := documents.NewService(newStubRepo(), newMemStore(), nil)
	doc, err := svc.Upload(context.Background(), 7, "Notes", "", "notes.md", "", strings.NewReader("# hi"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.ContentType != "text/markdown" {
		t.Fatalf("expected markdown fallback content type, got %q", doc.ContentType)
	}
}

func TestOpenDocumentStreamsContents(t *testing.T) {
	svc := documents.NewService(newStubRepo(), newMemStore(), nil)
	ctx := context.Background()

	created, err := svc.Upload(ctx, 7, "Notes", "", "notes.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	doc, contents, err := svc.OpenDocument(ctx, created.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer contents.Close()
	data, err := io.ReadAll(contents)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" || doc.FileName != "notes.txt" {
		t.Fatalf("unexpected contents %q for %+v", data, doc)
	}
}

func TestDeleteDocumentRemovesFile(t *testing.T) {
	store := newMemStore()
	audit := &recordingAudit{}
	svc := documents.NewService(newStubRepo(), store, audit)
	ctx := context.Background()

	created, err := svc.Upload(ctx, 7, "Notes", "", "notes.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.DeleteDocument(ctx, 7, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.files) != 0 {
		t.Fatalf("expected stored contents removed with the registry row")
	}
	if _, err := svc.GetDocument(ctx, created.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if len(audit.actions) != 2 || audit.actions[1] != "documents.deleted" {
		t.Fatalf("expected documents.deleted audit entry, got %v", audit.actions)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc := documents.NewService(newStubRepo(), newMemStore(), nil)
	if err := svc.DeleteDocument(context.Background(), 7, "missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
