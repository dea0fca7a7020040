package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// OrphanPostgres is a PostgreSQL implementation of repository.OrphanRepository.
type OrphanPostgres struct {
	db *sql.DB
}

// NewOrphanPostgres creates a new OrphanPostgres repository.
func NewOrphanPostgres(db *sql.DB) *OrphanPostgres {
	return &OrphanPostgres{db: db}
}

var _ repository.OrphanRepository = (*OrphanPostgres)(nil)

// Record inserts an orphan entry; repeats on the same key refresh recorded_at.
func (r *OrphanPostgres) Record(ctx context.Context, tenantID, storageKey string) error {
	const q = `
		INSERT INTO orphan_blobs (storage_key, tenant_id, recorded_at)
		VALUES ($1, $2, now())
		ON CONFLICT (storage_key) DO UPDATE SET recorded_at = now()
	`
	_, err := r.db.ExecContext(ctx, q, storageKey, tenantID)
	return err
}

// ListOlderThan returns orphan entries recorded before cutoff.
func (r *OrphanPostgres) ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.OrphanBlob, error) {
	const q = `
		SELECT storage_key, tenant_id, recorded_at
		FROM orphan_blobs
		WHERE recorded_at < $1
		ORDER BY recorded_at
	`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrphanBlob
	for rows.Next() {
		var o model.OrphanBlob
		if err := rows.Scan(&o.StorageKey, &o.TenantID, &o.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Remove deletes an orphan entry.
func (r *OrphanPostgres) Remove(ctx context.Context, storageKey string) error {
	const q = `DELETE FROM orphan_blobs WHERE storage_key = $1`
	_, err := r.db.ExecContext(ctx, q, storageKey)
	return err
}
