package jobs

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/lock"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
	"github.com/BenitoJames/backend-tindahan/internal/store/memory"
)

func newTestHandlers(t *testing.T) (*Handlers, *memory.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := memory.New()
	return &Handlers{
		Ledger: inventory.NewLedger(),
		Sales:  promo.NewCatalog(),
		Store:  st,
		Locker: lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
		Log:    zerolog.Nop(),
	}, st
}

func TestPromoSweepRemovesEndedSales(t *testing.T) {
	h, st := newTestHandlers(t)

	_, err := h.Sales.Add(promo.Draft{
		Name:   "old promo",
		Target: "F-001",
		Kind:   promo.KindFixed,
		Value:  500,
		Start:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = h.Sales.Add(promo.Draft{
		Name:   "current promo",
		Target: "B-002",
		Kind:   promo.KindPercent,
		Value:  1000,
		Start:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	task, err := NewPromoSweepTask(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, h.HandlePromoSweep(context.Background(), task))

	require.Len(t, h.Sales.Snapshot(), 1)

	saved, err := st.LoadSales(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "current promo", saved[0].Name)
}

func TestStockSweepRemovesExpiredProducts(t *testing.T) {
	h, st := newTestHandlers(t)

	fresh, err := catalog.NewPerishable("F-001", "Milk", "Bear Brand", "1L", 9900,
		time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	stale, err := catalog.NewPerishable("F-002", "Yogurt", "Nestle", "100g", 3500,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, h.Ledger.Register(fresh, 10))
	require.NoError(t, h.Ledger.Register(stale, 4))

	task, err := NewStockSweepTask(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, h.HandleStockSweep(context.Background(), task))

	saved, err := st.LoadInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "F-001", saved[0].Product.ID)
}

func TestStockSweepPrunesServingLedger(t *testing.T) {
	h, _ := newTestHandlers(t)

	stale, err := catalog.NewPerishable("F-010", "Taho", "Magnolia", "250ml", 2500,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, h.Ledger.Register(stale, 6))

	res, err := h.Ledger.Reserve("F-010", 1)
	require.NoError(t, err)
	require.NoError(t, h.Ledger.Release(res))

	task, err := NewStockSweepTask(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, h.HandleStockSweep(context.Background(), task))

	_, err = h.Ledger.Reserve("F-010", 1)
	require.ErrorIs(t, err, inventory.ErrUnknownProduct)
}

func TestSweepWithNothingToDoSkipsSave(t *testing.T) {
	h, st := newTestHandlers(t)

	task, err := NewPromoSweepTask(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, h.HandlePromoSweep(context.Background(), task))

	saved, err := st.LoadSales(context.Background())
	require.NoError(t, err)
	require.Empty(t, saved)
}
