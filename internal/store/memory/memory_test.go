package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
)

func TestInventoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, err := catalog.NewPerishable("F-001", "Milk", "Bear Brand", "1L", 9900,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	in := []inventory.Entry{{Product: p, Quantity: 7}}
	require.NoError(t, s.SaveInventory(ctx, in))

	out, err := s.LoadInventory(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestCustomersRoundTripCopiesCards(t *testing.T) {
	ctx := context.Background()
	s := New()

	card := &loyalty.Card{ID: "DLSUCS-00000001", Points: 12, Expiry: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.SaveCustomers(ctx, []loyalty.Customer{
		{ID: "DLSUser-001", Name: "Ana", Card: card},
		{ID: "DLSUser-002", Name: "Ben"},
	}))

	// Mutating the original card must not leak into the store.
	card.Points = 99

	out, err := s.LoadCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 12, out[0].Card.Points)
	require.Nil(t, out[1].Card)
}

func TestSalesRoundTripPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	in := []promo.Sale{
		{ID: "SALE-0001", Target: "F-001", Kind: promo.KindFixed, Value: 100, Active: true},
		{ID: "SALE-0002", Target: "ALL-B", Kind: promo.KindPercent, Value: 1000, Active: false},
	}
	require.NoError(t, s.SaveSales(ctx, in))
	out, err := s.LoadSales(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSalesLogAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AppendSalesLog(ctx, "line-1"))
	require.NoError(t, s.AppendSalesLog(ctx, "line-2"))
	require.Equal(t, []string{"line-1", "line-2"}, s.SalesLog())
}
