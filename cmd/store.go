package main

import (
	"context"

	"github.com/drivebase/catalog-cli/internal/store"
)

// openStore opens the configured database backend.
func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
}
