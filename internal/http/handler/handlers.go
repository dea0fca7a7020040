package handler

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/repository"
	"docvault/internal/service"
)

// HealthCheck reports readiness: the metadata store must answer a ping.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness check with no dependencies.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadDocument accepts a multipart upload (field name: file) and returns the
// canonical document with its server-generated id.
func UploadDocument(ingest service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := middleware.TenantFromCtx(c)

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := ingest.Ingest(c.UserContext(), tenantID, fh.Filename, ct, f, fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListDocuments returns the tenant's available documents ordered by upload time.
func ListDocuments(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := middleware.TenantFromCtx(c)

		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		filter := repository.ListFilter{
			MimeType: c.Query("mime_type"),
		}

		res, err := catalog.List(c.UserContext(), tenantID, filter, limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetDocument resolves a document id to its metadata.
func GetDocument(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := middleware.TenantFromCtx(c)

		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		doc, err := catalog.Resolve(c.UserContext(), tenantID, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams the document's bytes. The storage location comes
// from the resolved metadata row, never from anything the client supplies.
func DownloadDocument(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := middleware.TenantFromCtx(c)

		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		doc, rc, err := catalog.Download(c.UserContext(), tenantID, id)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, doc.MimeType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.OriginalFilename))
		return c.SendStream(rc, int(doc.SizeBytes))
	}
}

// GetDocumentURL returns a time-limited presigned URL for fetching the
// document's bytes directly from object storage.
func GetDocumentURL(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := middleware.TenantFromCtx(c)

		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		expiry := 15 * time.Minute
		if raw := c.Query("expiry_seconds"); raw != "" {
			secs, err := strconv.Atoi(raw)
			if err != nil || secs <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "invalid expiry_seconds")
			}
			expiry = time.Duration(secs) * time.Second
		}

		u, err := catalog.PresignDownload(c.UserContext(), tenantID, id, expiry)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"url":            u,
			"expires_in_sec": int(expiry.Seconds()),
		})
	}
}

// DeleteDocument soft-deletes a document; bytes are reclaimed later by the
// background sweep.
func DeleteDocument(lifecycle service.LifecycleService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := middleware.TenantFromCtx(c)

		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := lifecycle.Delete(c.UserContext(), tenantID, id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
