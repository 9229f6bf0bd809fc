package order

import "context"

// Repository is the document-store CRUD port for reconciled order records.
// Implementations key records by the normalized identifier and must return
// shared.ErrNotFound for missing keys. Callers receive and supply records
// they own; implementations must not alias stored state into returned values.
type Repository interface {
	Get(ctx context.Context, identifier string) (*OrderRecord, error)
	Put(ctx context.Context, record *OrderRecord) error
	Delete(ctx context.Context, identifier string) error
	List(ctx context.Context) ([]*OrderRecord, error)
}
