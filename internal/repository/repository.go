package repository

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}

// ListFilter narrows a tenant-scoped listing. Zero values mean no filtering.
// Listings only ever contain available rows; soft-deleted rows and rows
// mid-ingestion or failed are excluded regardless of filter.
type ListFilter struct {
	MimeType string
}
