package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; all business rules live in the services.
func RegisterRoutes(app *fiber.App, db *sql.DB, ingest service.IngestService, catalog service.CatalogService, lifecycle service.LifecycleService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Every document route requires the tenant identity injected by the
	// upstream auth gateway.
	docs := app.Group("/documents", middleware.Tenant())
	docs.Post("/", UploadDocument(ingest))
	docs.Get("/", ListDocuments(catalog))
	docs.Get("/:id", GetDocument(catalog))
	docs.Get("/:id/download", DownloadDocument(catalog))
	docs.Get("/:id/url", GetDocumentURL(catalog))
	docs.Delete("/:id", DeleteDocument(lifecycle))
}
