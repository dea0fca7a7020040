package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// OrphanRepository records blobs whose metadata commit never happened so the
// reconciliation sweep can remove them. Recording is best-effort — the same
// database being down is usually why the commit failed in the first place.
type OrphanRepository interface {
	// Record inserts an orphan entry; duplicate keys are upserted.
	Record(ctx context.Context, tenantID, storageKey string) error

	// ListOlderThan returns orphan entries recorded before cutoff.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.OrphanBlob, error)

	// Remove deletes an orphan entry after its blob has been reclaimed.
	Remove(ctx context.Context, storageKey string) error
}
