// Package store persists price history and the set dictionary.
package store

import (
	"context"

	"github.com/cardintel/cardintel/internal/model"
)

// Store defines the persistence interface for the pricing service.
type Store interface {
	// Price history
	SavePriceObservation(ctx context.Context, obs model.PriceObservation) error
	ListPriceHistory(ctx context.Context, cardID string, limit int) ([]model.PriceObservation, error)
	CountObservations(ctx context.Context) (int, error)

	// Set dictionary
	UpsertSets(ctx context.Context, sets []model.Set) (int64, error)
	ListSets(ctx context.Context) ([]model.Set, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store for the configured driver.
func New(ctx context.Context, driver, dsn string) (Store, error) {
	if driver == "sqlite" {
		return NewSQLite(dsn)
	}
	return NewPostgres(ctx, dsn, nil)
}
