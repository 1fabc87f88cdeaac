package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-iam/aegis/internal/shared"
)

// Repository provides data access for document metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, owner_id, title, description, file_name, stored_name, content_type, size_bytes, created_at, updated_at`

// ListDocuments returns one page of documents, newest first, with the total.
func (r *Repository) ListDocuments(ctx context.Context, limit, offset int) ([]Document, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("documents: count: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("documents: list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// GetDocument fetches one document by ID.
func (r *Repository) GetDocument(ctx context.Context, id string) (Document, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, shared.ErrNotFound
	}
	return doc, err
}

// CreateDocument inserts a metadata row for an uploaded file.
func (r *Repository) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO documents (id, owner_id, title, description, file_name, stored_name, content_type, size_bytes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+documentColumns,
		doc.ID, doc.OwnerID, doc.Title, doc.Description, doc.FileName, doc.StoredName, doc.ContentType, doc.SizeBytes)
	created, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("documents: create: %w", err)
	}
	return created, nil
}

// DeleteDocument removes the metadata row.
func (r *Repository) DeleteDocument(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("documents: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Description, &doc.FileName,
		&doc.StoredName, &doc.ContentType, &doc.SizeBytes, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}
