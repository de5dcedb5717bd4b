// Package store defines the persistence collaborator for the register core.
// The core hands over full snapshots and settled transactions; it never sees
// the storage format.
package store

import (
	"context"

	"github.com/BenitoJames/backend-tindahan/internal/checkout"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
)

// Store is the persistence collaborator contract. Save and Load round-trip
// every field losslessly; load order matches the snapshot order handed to
// save.
type Store interface {
	LoadInventory(ctx context.Context) ([]inventory.Entry, error)
	SaveInventory(ctx context.Context, entries []inventory.Entry) error

	LoadCustomers(ctx context.Context) ([]loyalty.Customer, error)
	SaveCustomers(ctx context.Context, customers []loyalty.Customer) error

	LoadSales(ctx context.Context) ([]promo.Sale, error)
	SaveSales(ctx context.Context, sales []promo.Sale) error

	// SaveTransaction persists a settled transaction record.
	SaveTransaction(ctx context.Context, t *checkout.Transaction) error

	// AppendSalesLog appends one CSV summary line to the sales log.
	AppendSalesLog(ctx context.Context, line string) error
}
