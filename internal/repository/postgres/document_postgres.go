package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, tenant_id, original_filename, mime_type, size_bytes, storage_key, content_hash, status, uploaded_at, deleted_at, blob_reclaimed_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.OriginalFilename,
		&d.MimeType,
		&d.SizeBytes,
		&d.StorageKey,
		&d.ContentHash,
		&d.Status,
		&d.UploadedAt,
		&d.DeletedAt,
		&d.BlobReclaimedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, tenant_id, original_filename, mime_type, size_bytes, storage_key, content_hash, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.TenantID,
		doc.OriginalFilename,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.ContentHash,
		doc.Status,
		doc.UploadedAt,
	)
	return scanDocument(row)
}

// MarkAvailable transitions a stored row to available.
func (r *DocumentPostgres) MarkAvailable(ctx context.Context, id string) error {
	const q = `UPDATE documents SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, q, model.StatusAvailable, id, model.StatusStored)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID fetches a live document scoped to the tenant.
func (r *DocumentPostgres) FindByID(ctx context.Context, tenantID, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id, tenantID))
}

// List returns available documents for the tenant ordered by upload time,
// newest first. Rows mid-ingestion (uploading, stored) and terminal rows
// (deleted, failed) never appear: a document is listable only once both its
// blob and its metadata have committed.
func (r *DocumentPostgres) List(ctx context.Context, tenantID string, f repository.ListFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where := []string{"tenant_id = $1", "deleted_at IS NULL", "status = $2"}
	args := []any{tenantID, model.StatusAvailable}
	if f.MimeType != "" {
		args = append(args, f.MimeType)
		where = append(where, "mime_type = $"+strconv.Itoa(len(args)))
	}
	cond := strings.Join(where, " AND ")

	qCount := `SELECT COUNT(*) FROM documents WHERE ` + cond
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, pq.Limit)
	limitPos := strconv.Itoa(len(args))
	args = append(args, pq.Offset)
	offsetPos := strconv.Itoa(len(args))

	qList := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE ` + cond + `
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $` + limitPos + ` OFFSET $` + offsetPos
	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// SoftDelete marks a live row deleted. Returns false when no live row matched.
func (r *DocumentPostgres) SoftDelete(ctx context.Context, tenantID, id string) (bool, error) {
	const q = `
		UPDATE documents
		SET deleted_at = now(), status = $1
		WHERE id = $2 AND tenant_id = $3 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, model.StatusDeleted, id, tenantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeletedExists reports whether a soft-deleted row exists for the tenant/id pair.
func (r *DocumentPostgres) DeletedExists(ctx context.Context, tenantID, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NOT NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, id, tenantID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ExistsByStorageKey reports whether any row references the storage key.
func (r *DocumentPostgres) ExistsByStorageKey(ctx context.Context, storageKey string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM documents WHERE storage_key = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, storageKey).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindStale returns rows stuck mid-ingestion older than cutoff.
func (r *DocumentPostgres) FindStale(ctx context.Context, cutoff time.Time) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status IN ($1, $2) AND uploaded_at < $3
	`
	return r.queryDocuments(ctx, q, model.StatusUploading, model.StatusStored, cutoff)
}

// MarkFailed transitions a row to failed.
func (r *DocumentPostgres) MarkFailed(ctx context.Context, id string) error {
	const q = `UPDATE documents SET status = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, q, model.StatusFailed, id)
	return err
}

// FindReclaimable returns terminal rows whose blob is still in storage.
func (r *DocumentPostgres) FindReclaimable(ctx context.Context, cutoff time.Time) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status IN ($1, $2)
		  AND blob_reclaimed_at IS NULL
		  AND COALESCE(deleted_at, uploaded_at) < $3
	`
	return r.queryDocuments(ctx, q, model.StatusDeleted, model.StatusFailed, cutoff)
}

// MarkBlobReclaimed stamps the row after its blob was removed.
func (r *DocumentPostgres) MarkBlobReclaimed(ctx context.Context, id string) error {
	const q = `UPDATE documents SET blob_reclaimed_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *DocumentPostgres) queryDocuments(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
