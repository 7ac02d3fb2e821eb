// Package repository holds the SQL used by the API, the worker and the CLI.
// Queries are plain SQL through pgx.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/docdesk/internal/model"
)

const documentColumns = `id, user_id, file, status, created_at, updated_at`

// DocumentRepository wraps all document SQL.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constructs a repository.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create inserts a pending document and fills in its id and timestamps.
func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	now := time.Now().UTC()
	doc.Status = model.StatusPending
	doc.CreatedAt = now
	doc.UpdatedAt = now
	err := r.pool.QueryRow(ctx, `
		INSERT INTO documents (user_id, file, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, doc.UserID, doc.File, doc.Status, now).Scan(&doc.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert document for user %d: %w", doc.UserID, model.ErrUnknownOwner)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get returns a document by id.
func (r *DocumentRepository) Get(ctx context.Context, id int64) (*model.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

// ListByOwner returns the owner's documents, most recent first.
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// List returns documents joined with their owners for the admin listing.
func (r *DocumentRepository) List(ctx context.Context, filter model.ListFilter) ([]model.ReviewItem, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.user_id, d.file, d.status, d.created_at, d.updated_at,
			COALESCE(u.username, ''), COALESCE(u.email, '')
		FROM documents d
		LEFT JOIN users u ON u.id = d.user_id
		WHERE ($1 = '' OR d.status = $1)
			AND ($2 = '' OR u.username ILIKE '%' || $2 || '%' OR u.email ILIKE '%' || $2 || '%')
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT $3 OFFSET $4
	`, string(filter.Status), filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	defer rows.Close()

	items := make([]model.ReviewItem, 0)
	for rows.Next() {
		var item model.ReviewItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.File, &item.Status, &item.CreatedAt, &item.UpdatedAt,
			&item.Username, &item.Email); err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetStatus moves every selected document that may transition to status in a
// single statement and returns the ids it touched. Documents already in the
// opposite terminal state are left alone.
func (r *DocumentRepository) SetStatus(ctx context.Context, ids []int64, status model.Status) ([]int64, error) {
	if !status.Valid() || status == model.StatusPending {
		return nil, fmt.Errorf("set status %q: invalid target", status)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	rows, err := r.pool.Query(ctx, `
		UPDATE documents
		SET status = $1,
			updated_at = GREATEST(updated_at, $2)
		WHERE id = ANY($3)
			AND (status = $4 OR status = $1)
		RETURNING id
	`, status, now, ids, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("update documents: %w", err)
	}
	updated, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("update documents: %w", err)
	}
	return updated, nil
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.File, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
