package service

import (
	"context"
	"time"

	"docvault/internal/config"
	"docvault/internal/metrics"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// LifecycleService owns the delete path and the garbage-collection sweep.
// Soft-delete is the only user-facing delete; blobs are reclaimed later by
// ReconcileOrphans so an in-flight download never loses its bytes.
type LifecycleService interface {
	// Delete soft-deletes a document. Repeating a delete is a no-op success;
	// an id that never existed (or belongs to another tenant) is ErrNotFound.
	Delete(ctx context.Context, tenantID, id string) error

	// ReconcileOrphans runs one sweep pass and returns the number of blobs
	// reclaimed. It is safe to run concurrently with live ingestion: every
	// step only touches rows and objects older than the grace window.
	ReconcileOrphans(ctx context.Context) (int, error)

	// FlagInconsistent marks a document failed after a read found its blob
	// missing. State repair is lifecycle-owned; read paths report through
	// this instead of holding a write capability of their own.
	FlagInconsistent(ctx context.Context, id string) error
}

type lifecycleService struct {
	store   storage.Storage
	docs    repository.DocumentRepository
	orphans repository.OrphanRepository
	cfg     config.LifecycleConfig
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewLifecycleService constructs a new LifecycleService.
func NewLifecycleService(store storage.Storage, docs repository.DocumentRepository, orphans repository.OrphanRepository, cfg config.LifecycleConfig, m *metrics.Metrics) LifecycleService {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &lifecycleService{
		store:   store,
		docs:    docs,
		orphans: orphans,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
	}
}

func (s *lifecycleService) Delete(ctx context.Context, tenantID, id string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if id == "" {
		return ErrIDRequired
	}

	deleted, err := s.docs.SoftDelete(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}

	// No live row matched: either already deleted (idempotent no-op) or the
	// id is unknown to this tenant.
	exists, err := s.docs.DeletedExists(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return ErrNotFound
}

func (s *lifecycleService) FlagInconsistent(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.docs.MarkFailed(ctx, id); err != nil {
		return err
	}
	logEvent(map[string]any{
		"component":   "lifecycle",
		"event":       "inconsistent_row_flagged",
		"document_id": id,
	})
	return nil
}

// ReconcileOrphans repairs the partial-failure cases in order:
//  1. rows stuck mid-ingestion past the grace window are marked failed
//  2. recorded orphan blobs are removed and their records drained
//  3. blobs behind terminal rows (deleted, failed) are reclaimed
//  4. a storage scan removes objects no row references at all
func (s *lifecycleService) ReconcileOrphans(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.cfg.GraceWindow)
	reclaimed := 0

	stale, err := s.docs.FindStale(ctx, cutoff)
	if err != nil {
		return reclaimed, err
	}
	for _, d := range stale {
		if err := s.docs.MarkFailed(ctx, d.ID); err != nil {
			s.logSweepError("mark_stale_failed", d.StorageKey, err)
			continue
		}
		logEvent(map[string]any{
			"component":   "lifecycle",
			"event":       "stale_row_failed",
			"document_id": d.ID,
			"tenant_id":   d.TenantID,
			"status":      string(d.Status),
		})
	}

	orphans, err := s.orphans.ListOlderThan(ctx, cutoff)
	if err != nil {
		return reclaimed, err
	}
	for _, o := range orphans {
		if err := s.store.Delete(ctx, o.StorageKey); err != nil {
			s.logSweepError("orphan_blob_delete_failed", o.StorageKey, err)
			continue
		}
		if err := s.orphans.Remove(ctx, o.StorageKey); err != nil {
			s.logSweepError("orphan_record_remove_failed", o.StorageKey, err)
			continue
		}
		reclaimed++
		s.metrics.BlobsReclaimed.Inc()
	}

	terminal, err := s.docs.FindReclaimable(ctx, cutoff)
	if err != nil {
		return reclaimed, err
	}
	for _, d := range terminal {
		if err := s.store.Delete(ctx, d.StorageKey); err != nil {
			s.logSweepError("terminal_blob_delete_failed", d.StorageKey, err)
			continue
		}
		if err := s.docs.MarkBlobReclaimed(ctx, d.ID); err != nil {
			s.logSweepError("mark_reclaimed_failed", d.StorageKey, err)
			continue
		}
		reclaimed++
		s.metrics.BlobsReclaimed.Inc()
	}

	// Catch blobs from upload-then-crash runs that never reached the orphan
	// table. The grace window keeps in-flight uploads out of reach.
	objects, err := s.store.List(ctx, "")
	if err != nil {
		return reclaimed, err
	}
	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		referenced, err := s.docs.ExistsByStorageKey(ctx, obj.Key)
		if err != nil {
			return reclaimed, err
		}
		if referenced {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.logSweepError("unreferenced_blob_delete_failed", obj.Key, err)
			continue
		}
		logEvent(map[string]any{
			"component":   "lifecycle",
			"event":       "unreferenced_blob_reclaimed",
			"storage_key": obj.Key,
		})
		reclaimed++
		s.metrics.BlobsReclaimed.Inc()
	}

	return reclaimed, nil
}

func (s *lifecycleService) logSweepError(event, storageKey string, err error) {
	logEvent(map[string]any{
		"level":       "error",
		"component":   "lifecycle",
		"event":       event,
		"storage_key": storageKey,
		"error":       err.Error(),
	})
}
