package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/BenitoJames/backend-tindahan/internal/events"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/lock"
	"github.com/BenitoJames/backend-tindahan/internal/obs"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
	"github.com/BenitoJames/backend-tindahan/internal/store"
)

// Handlers executes the sweep tasks against the serving ledgers and persists
// the resulting snapshots. The api process consumes these tasks so a sweep
// mutates the same in-memory state checkout reserves from; the lock keeps
// overlapping deliveries from sweeping twice.
type Handlers struct {
	Ledger  *inventory.Ledger
	Sales   *promo.Catalog
	Store   store.Store
	Bus     *events.Bus
	Locker  lock.Locker
	LockTTL time.Duration
	Log     zerolog.Logger
	Now     func() time.Time
}

// Mux wires the task handlers onto an asynq mux.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePromoSweep, h.HandlePromoSweep)
	mux.HandleFunc(TypeStockSweep, h.HandleStockSweep)
	return mux
}

func (h *Handlers) asOf(t *asynq.Task) time.Time {
	var p sweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err == nil && !p.AsOf.IsZero() {
		return p.AsOf
	}
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handlers) lockTTL() time.Duration {
	if h.LockTTL > 0 {
		return h.LockTTL
	}
	return 30 * time.Second
}

// HandlePromoSweep removes sales whose window has fully closed and saves the
// catalog snapshot.
func (h *Handlers) HandlePromoSweep(ctx context.Context, t *asynq.Task) error {
	asOf := h.asOf(t)
	return h.Locker.WithLock(ctx, "lock:promo-sweep", h.lockTTL(), func(ctx context.Context) error {
		removed := h.Sales.SweepExpired(asOf)
		if removed == 0 {
			h.Log.Debug().Time("as_of", asOf).Msg("promo sweep found nothing to remove")
			return nil
		}
		if err := h.Store.SaveSales(ctx, h.Sales.Snapshot()); err != nil {
			return fmt.Errorf("save sales snapshot: %w", err)
		}
		obs.SalesSweptTotal.Add(float64(removed))
		if h.Bus != nil {
			h.Bus.Emit(ctx, events.TopicSalesSwept, map[string]any{"removed": removed, "as_of": asOf})
		}
		h.Log.Info().Int("removed", removed).Time("as_of", asOf).Msg("promo sweep complete")
		return nil
	})
}

// HandleStockSweep pulls expired perishable stock and saves the inventory
// snapshot.
func (h *Handlers) HandleStockSweep(ctx context.Context, t *asynq.Task) error {
	asOf := h.asOf(t)
	return h.Locker.WithLock(ctx, "lock:stock-sweep", h.lockTTL(), func(ctx context.Context) error {
		removed := h.Ledger.RemoveExpired(asOf)
		if len(removed) == 0 {
			h.Log.Debug().Time("as_of", asOf).Msg("stock sweep found nothing expired")
			return nil
		}
		if err := h.Store.SaveInventory(ctx, h.Ledger.Snapshot()); err != nil {
			return fmt.Errorf("save inventory snapshot: %w", err)
		}
		units := 0
		ids := make([]string, 0, len(removed))
		for _, e := range removed {
			units += e.Quantity
			ids = append(ids, e.Product.ID)
		}
		obs.ExpiredStockRemovedTotal.Add(float64(units))
		if h.Bus != nil {
			h.Bus.Emit(ctx, events.TopicStockExpired, map[string]any{"products": ids, "units": units, "as_of": asOf})
		}
		h.Log.Info().Strs("products", ids).Int("units", units).Msg("expired stock removed")
		return nil
	})
}
