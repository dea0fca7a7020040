package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docvault/internal/config"
	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// IngestService accepts uploads and is the only writer on the create path.
//
// Ordering is storage-then-metadata: bytes land in the blob store before any
// row exists, so a listing can never reference missing bytes. A metadata
// failure after a successful blob write leaves at most one orphaned blob,
// recorded for the reconciliation sweep.
type IngestService interface {
	// Ingest validates the upload, streams content to object storage, commits
	// the metadata row, and returns the canonical document with its
	// server-generated id. The id and storage key are never derived from the
	// filename or the content.
	Ingest(ctx context.Context, tenantID, filename, mimeType string, r io.Reader, size int64) (*model.Document, error)
}

type ingestService struct {
	store   storage.Storage
	docs    repository.DocumentRepository
	orphans repository.OrphanRepository
	cfg     config.IngestConfig
	metrics *metrics.Metrics
}

// NewIngestService constructs a new IngestService.
func NewIngestService(store storage.Storage, docs repository.DocumentRepository, orphans repository.OrphanRepository, cfg config.IngestConfig, m *metrics.Metrics) IngestService {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &ingestService{store: store, docs: docs, orphans: orphans, cfg: cfg, metrics: m}
}

func (s *ingestService) Ingest(ctx context.Context, tenantID, filename, mimeType string, r io.Reader, size int64) (*model.Document, error) {
	if err := s.validate(tenantID, mimeType, r, size); err != nil {
		s.metrics.IngestFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	// The storage key is a tenant-scoped opaque token. Duplicate filenames,
	// concurrent uploads, and re-uploads of identical content all get
	// distinct keys.
	ext := filepath.Ext(filename)
	key := tenantID + "/" + uuid.NewString() + ext

	hasher := sha256.New()
	objInfo, err := s.store.Put(ctx, key, io.TeeReader(r, hasher), storage.PutObjectOptions{
		Size:        size,
		ContentType: mimeType,
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		s.metrics.IngestFailures.WithLabelValues("storage").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	doc := &model.Document{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		OriginalFilename: filename,
		MimeType:         mimeType,
		SizeBytes:        objInfo.Size,
		StorageKey:       key,
		ContentHash:      hex.EncodeToString(hasher.Sum(nil)),
		Status:           model.StatusStored,
		UploadedAt:       time.Now().UTC(),
	}

	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		s.metrics.IngestFailures.WithLabelValues("metadata").Inc()
		// Best effort: the same database being unavailable is the usual cause,
		// so the structured log is the fallback trail for reconciliation.
		if recErr := s.orphans.Record(ctx, tenantID, key); recErr != nil {
			logEvent(map[string]any{
				"level":       "error",
				"component":   "ingest",
				"event":       "orphan_record_failed",
				"tenant_id":   tenantID,
				"storage_key": key,
				"error":       recErr.Error(),
			})
		}
		logEvent(map[string]any{
			"level":       "error",
			"component":   "ingest",
			"event":       "metadata_commit_failed",
			"tenant_id":   tenantID,
			"storage_key": key,
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrMetadataCommit, err)
	}

	if err := s.docs.MarkAvailable(ctx, stored.ID); err != nil {
		// The row stays in stored; the sweep marks it failed and reclaims the
		// blob. The caller retries with a fresh id and key.
		s.metrics.IngestFailures.WithLabelValues("metadata").Inc()
		logEvent(map[string]any{
			"level":       "error",
			"component":   "ingest",
			"event":       "availability_transition_failed",
			"tenant_id":   tenantID,
			"document_id": stored.ID,
			"storage_key": key,
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrMetadataCommit, err)
	}
	stored.Status = model.StatusAvailable

	s.metrics.DocumentsIngested.Inc()
	return stored, nil
}

func (s *ingestService) validate(tenantID, mimeType string, r io.Reader, size int64) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if r == nil {
		return ErrReaderNil
	}
	// Zero-byte payloads are rejected outright, before any write happens.
	if size <= 0 {
		return ErrEmptyContent
	}
	if s.cfg.MaxUploadBytes > 0 && size > s.cfg.MaxUploadBytes {
		return ErrContentTooBig
	}
	for _, allowed := range s.cfg.AllowedMimeTypes {
		if mimeType == allowed {
			return nil
		}
	}
	return ErrMimeNotAllowed
}
