package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.DocumentSummary `json:"data"`
	Total int                     `json:"total"`
}

// InconsistencyFlagger reports a document whose metadata and blob disagree.
// The lifecycle service implements it; the catalog only reports, it never
// writes document state itself.
type InconsistencyFlagger interface {
	FlagInconsistent(ctx context.Context, id string) error
}

// CatalogService is the read path. It never mutates document state (Download
// reports broken rows through the flagger; the repair itself is
// lifecycle-owned) and it never recomputes identifiers — Resolve is backed by
// the metadata store alone.
type CatalogService interface {
	// List returns the tenant's live documents ordered by upload time,
	// newest first.
	List(ctx context.Context, tenantID string, f repository.ListFilter, limit, offset int) (*DocumentListResult, error)

	// Resolve is the single authoritative lookup behind download, delete, and
	// any downstream consumer. A missing id and a foreign tenant's id are both
	// ErrNotFound.
	Resolve(ctx context.Context, tenantID, id string) (*model.Document, error)

	// Download resolves the document and streams its bytes from object
	// storage via the resolved storage key.
	Download(ctx context.Context, tenantID, id string) (*model.Document, io.ReadCloser, error)

	// PresignDownload resolves the document and returns a time-limited URL
	// for fetching its bytes directly from object storage.
	PresignDownload(ctx context.Context, tenantID, id string, expiry time.Duration) (string, error)
}

type catalogService struct {
	store   storage.Storage
	docs    repository.DocumentRepository
	flagger InconsistencyFlagger
	metrics *metrics.Metrics
}

// NewCatalogService constructs a new CatalogService. A nil flagger disables
// inconsistency reporting; reads still fail with ErrInconsistentState.
func NewCatalogService(store storage.Storage, docs repository.DocumentRepository, flagger InconsistencyFlagger, m *metrics.Metrics) CatalogService {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &catalogService{store: store, docs: docs, flagger: flagger, metrics: m}
}

func (s *catalogService) List(ctx context.Context, tenantID string, f repository.ListFilter, limit, offset int) (*DocumentListResult, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.docs.List(ctx, tenantID, f, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	items := make([]model.DocumentSummary, 0, len(res.Items))
	for _, d := range res.Items {
		items = append(items, d.Summary())
	}
	return &DocumentListResult{Items: items, Total: res.Total}, nil
}

func (s *catalogService) Resolve(ctx context.Context, tenantID, id string) (*model.Document, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if id == "" {
		return nil, ErrIDRequired
	}

	doc, err := s.docs.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// Rows still mid-ingestion are not visible; callers only ever see
	// documents whose blob and metadata have both committed.
	if doc.Status != model.StatusAvailable {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *catalogService) Download(ctx context.Context, tenantID, id string) (*model.Document, io.ReadCloser, error) {
	doc, err := s.Resolve(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	rc, _, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// Metadata claims bytes that storage doesn't have. Report the row
			// so lifecycle takes it out of circulation and reclaims whatever
			// is left.
			s.metrics.InconsistentReads.Inc()
			logEvent(map[string]any{
				"level":       "error",
				"component":   "catalog",
				"event":       "blob_missing_for_available_row",
				"tenant_id":   tenantID,
				"document_id": doc.ID,
				"storage_key": doc.StorageKey,
			})
			if s.flagger != nil {
				if flagErr := s.flagger.FlagInconsistent(ctx, doc.ID); flagErr != nil {
					logEvent(map[string]any{
						"level":       "error",
						"component":   "catalog",
						"event":       "inconsistency_flag_error",
						"document_id": doc.ID,
						"error":       flagErr.Error(),
					})
				}
			}
			return nil, nil, fmt.Errorf("%w: blob missing for document %s", ErrInconsistentState, doc.ID)
		}
		return nil, nil, fmt.Errorf("fetch object: %w", err)
	}

	return doc, rc, nil
}

func (s *catalogService) PresignDownload(ctx context.Context, tenantID, id string, expiry time.Duration) (string, error) {
	doc, err := s.Resolve(ctx, tenantID, id)
	if err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	u, err := s.store.PresignGet(ctx, doc.StorageKey, expiry)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u, nil
}
