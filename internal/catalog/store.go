package catalog

import (
	"context"

	"pharmacy-portal/pkg"
)

// Store is the read-only port onto the inventory catalog. Both lookups are
// case-insensitive contains matches on the stored fields, not fuzzy or
// similarity search. Implementations may block on I/O; each call is
// independently retryable by the caller.
type Store interface {
	FindByNameAndDosage(ctx context.Context, name, dosage string) ([]pkg.CatalogItem, error)
	FindByName(ctx context.Context, name string) ([]pkg.CatalogItem, error)
}
