package domain

import "context"

type ProductRepository interface {
	// Write paths
	UpsertProduct(ctx context.Context, p Product, position int) error
	LogMiss(ctx context.Context, id string, status int, reason string) error

	// Read paths
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// CatalogFeed is the upstream product source the ingestor reads from.
type CatalogFeed interface {
	ListProductIDs(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, id string) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ConfirmationEmitter delivers a finalized booking to the customer.
// Its outcome never changes the booking.
type ConfirmationEmitter interface {
	Notify(ctx context.Context, b Booking) error
}
