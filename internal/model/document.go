package model

import "time"

// Status is the lifecycle state of a document.
//
// Transitions: uploading -> stored -> available -> deleted.
// Rows stuck in uploading/stored past the grace window are marked failed
// by the reconciliation sweep. deleted and failed are terminal.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusStored    Status = "stored"
	StatusAvailable Status = "available"
	StatusDeleted   Status = "deleted"
	StatusFailed    Status = "failed"
)

// Document represents a stored file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
//
// ID is server-generated and opaque; it is never derived from the filename or
// the content hash. StorageKey is the object storage location and is likewise
// generated independently of the filename. ContentHash is a fingerprint of the
// stored bytes used for integrity checks only, never for identity.
type Document struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	OriginalFilename string     `json:"original_filename"`
	MimeType         string     `json:"mime_type"`
	SizeBytes        int64      `json:"size_bytes"`
	StorageKey       string     `json:"-"`
	ContentHash      string     `json:"content_hash,omitempty"`
	Status           Status     `json:"status"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	BlobReclaimedAt  *time.Time `json:"-"`
}

// DocumentSummary is the listing projection returned by the catalog.
type DocumentSummary struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"filename"`
	Status           Status    `json:"status"`
	SizeBytes        int64     `json:"size"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Summary projects a Document into its listing shape.
func (d Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:               d.ID,
		OriginalFilename: d.OriginalFilename,
		Status:           d.Status,
		SizeBytes:        d.SizeBytes,
		UploadedAt:       d.UploadedAt,
	}
}

// OrphanBlob records an object written to storage whose metadata commit never
// happened. The reconciliation sweep drains these.
type OrphanBlob struct {
	StorageKey string    `json:"storage_key"`
	TenantID   string    `json:"tenant_id"`
	RecordedAt time.Time `json:"recorded_at"`
}
