package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentRepository defines data access for document metadata using SQL queries only.
// No business logic here — strictly persistence operations.
//
// Every tenant-facing read takes a tenantID and is filtered by it; a row
// belonging to another tenant is indistinguishable from a missing row
// (sql.ErrNoRows either way).
type DocumentRepository interface {
	// Create inserts a new document row. The caller supplies the ID, storage
	// key, and initial status; uploaded_at defaults are applied by the schema.
	// Returns the stored document as persisted.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// MarkAvailable transitions a row from stored to available.
	// Returns sql.ErrNoRows if the row is absent or not in stored state.
	MarkAvailable(ctx context.Context, id string) error

	// FindByID returns a live (not soft-deleted) document scoped to the tenant.
	FindByID(ctx context.Context, tenantID, id string) (*model.Document, error)

	// List returns a page of available documents for the tenant ordered by
	// uploaded_at descending, plus the total row count for the filter. Rows
	// mid-ingestion or in a terminal state are never listed.
	List(ctx context.Context, tenantID string, f ListFilter, pq PageQuery) (*PageResult[model.Document], error)

	// SoftDelete sets deleted_at and status on a live row. Returns
	// (false, nil) when no live row matched; the caller decides whether the
	// document was already deleted or never existed.
	SoftDelete(ctx context.Context, tenantID, id string) (bool, error)

	// DeletedExists reports whether a soft-deleted row exists for the
	// tenant/id pair. Used to keep repeat deletes idempotent.
	DeletedExists(ctx context.Context, tenantID, id string) (bool, error)

	// ExistsByStorageKey reports whether any row, live or not, references the
	// storage key. Deleted rows keep their key reserved until reclamation.
	ExistsByStorageKey(ctx context.Context, storageKey string) (bool, error)

	// FindStale returns rows stuck in uploading or stored older than cutoff.
	FindStale(ctx context.Context, cutoff time.Time) ([]model.Document, error)

	// MarkFailed transitions a row to the terminal failed status.
	MarkFailed(ctx context.Context, id string) error

	// FindReclaimable returns deleted or failed rows older than cutoff whose
	// blob has not been reclaimed yet.
	FindReclaimable(ctx context.Context, cutoff time.Time) ([]model.Document, error)

	// MarkBlobReclaimed records that the row's blob was removed from storage.
	MarkBlobReclaimed(ctx context.Context, id string) error
}
