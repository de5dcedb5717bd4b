package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
	"github.com/BenitoJames/backend-tindahan/internal/events"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/payment"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
)

var serviceNow = time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)

type stubStore struct {
	saved []Transaction
}

func (s *stubStore) SaveTransaction(_ context.Context, t *Transaction) error {
	s.saved = append(s.saved, *t)
	return nil
}

type recordingNotifier struct {
	events []events.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e events.Event) error {
	n.events = append(n.events, e)
	return nil
}

type fixture struct {
	svc       *Service
	ledger    *inventory.Ledger
	customers *loyalty.Registry
	sales     *promo.Catalog
	store     *stubStore
	notifier  *recordingNotifier
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ledger := inventory.NewLedger()
	chips, err := catalog.New("F-001", "Chips", "Oishi", "", 10000)
	require.NoError(t, err)
	require.NoError(t, ledger.Register(chips, 10))
	soda, err := catalog.New("B-001", "Soda", "RC", "1L", 2500)
	require.NoError(t, err)
	require.NoError(t, ledger.Register(soda, 4))

	sales := promo.NewCatalog()
	customers := loyalty.NewRegistry().WithNow(func() time.Time { return serviceNow })
	store := &stubStore{}
	notifier := &recordingNotifier{}
	bus := events.NewBus(zerolog.Nop(), notifier)

	svc := NewService(ledger, sales, customers, store, bus, zerolog.Nop(), opts).
		WithNow(func() time.Time { return serviceNow })
	return &fixture{svc: svc, ledger: ledger, customers: customers, sales: sales, store: store, notifier: notifier}
}

func TestAddItemReservesStock(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	id, err := f.svc.Start("")
	require.NoError(t, err)

	line, err := f.svc.AddItem(id, "F-001", 2)
	require.NoError(t, err)
	require.Equal(t, Money(10000), line.UnitPrice)

	e, err := f.ledger.Get("F-001")
	require.NoError(t, err)
	require.Equal(t, 8, e.Quantity)

	_, err = f.svc.AddItem(id, "B-001", 5)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestAddItemSnapshotsPromoPrice(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sale, err := f.sales.Add(promo.Draft{
		Name:   "chips promo",
		Target: "F-001",
		Kind:   promo.KindPercent,
		Value:  2000,
		Start:  serviceNow.Add(-time.Hour),
		End:    serviceNow.Add(time.Hour),
	})
	require.NoError(t, err)

	id, err := f.svc.Start("")
	require.NoError(t, err)
	line, err := f.svc.AddItem(id, "F-001", 1)
	require.NoError(t, err)
	require.Equal(t, Money(8000), line.UnitPrice)
	require.Equal(t, sale.ID, line.SaleID)
}

func TestAddItemRawPriceWhenPromoAtAddOff(t *testing.T) {
	opts := DefaultOptions()
	opts.PromoPriceAtAdd = false
	f := newFixture(t, opts)
	_, err := f.sales.Add(promo.Draft{
		Name:   "chips promo",
		Target: "F-001",
		Kind:   promo.KindPercent,
		Value:  2000,
		Start:  serviceNow.Add(-time.Hour),
		End:    serviceNow.Add(time.Hour),
	})
	require.NoError(t, err)

	id, err := f.svc.Start("")
	require.NoError(t, err)
	line, err := f.svc.AddItem(id, "F-001", 1)
	require.NoError(t, err)
	require.Equal(t, Money(10000), line.UnitPrice)
	require.Empty(t, line.SaleID)
}

func TestRemoveItemReleasesEveryUnit(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	id, err := f.svc.Start("")
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "F-001", 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "F-001", 3) // merges onto the same line
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveItem(id, "F-001"))
	e, err := f.ledger.Get("F-001")
	require.NoError(t, err)
	require.Equal(t, 10, e.Quantity)
}

func TestAbandonReleasesAllReservationsOnce(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	id, err := f.svc.Start("")
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "F-001", 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "B-001", 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Abandon(context.Background(), id))

	e, err := f.ledger.Get("F-001")
	require.NoError(t, err)
	require.Equal(t, 10, e.Quantity)
	e, err = f.ledger.Get("B-001")
	require.NoError(t, err)
	require.Equal(t, 4, e.Quantity)

	// Session is gone; abandoning again is an unknown-session error.
	require.ErrorIs(t, f.svc.Abandon(context.Background(), id), ErrUnknownSession)
	require.Empty(t, f.store.saved)
	require.Equal(t, events.TopicTransactionAbandoned, f.notifier.events[0].Topic)
}

func TestSettleCashFullFlow(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ana := f.customers.Register("Ana")
	_, err := f.customers.PurchaseMembership(ana.ID, serviceNow.AddDate(1, 0, 0))
	require.NoError(t, err)

	id, err := f.svc.Start(ana.ID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "F-001", 2)
	require.NoError(t, err)
	require.NoError(t, f.svc.ValidateConcession(id, "SRC-1234"))

	txn, err := f.svc.ComputeTotals(id)
	require.NoError(t, err)
	require.Equal(t, Money(16000), txn.FinalTotal)

	done, err := f.svc.Settle(context.Background(), id, MethodCash, 20000, nil)
	require.NoError(t, err)
	require.Equal(t, StateSettled, done.State)
	require.Equal(t, Money(4000), done.Change)

	// Stock stays decremented after settlement.
	e, err := f.ledger.Get("F-001")
	require.NoError(t, err)
	require.Equal(t, 8, e.Quantity)

	// 160.00 eligible earns 3 points.
	balance, err := f.customers.Balance(ana.ID)
	require.NoError(t, err)
	require.Equal(t, 3, balance)

	require.Len(t, f.store.saved, 1)
	require.Equal(t, events.TopicTransactionSettled, f.notifier.events[0].Topic)
	payload, ok := f.notifier.events[0].Payload.(events.SettledPayload)
	require.True(t, ok)
	require.Equal(t, 3, payload.PointsEarned)
	require.Contains(t, payload.SummaryLine, "DLSUser-001,160.00,cash")
}

func TestRedeemPointsClampAndRefund(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ana := f.customers.Register("Ana")
	_, err := f.customers.PurchaseMembership(ana.ID, serviceNow.AddDate(1, 0, 0))
	require.NoError(t, err)
	_, err = f.customers.Earn(ana.ID, 30*loyalty.PointEarnDivisor) // 30 points
	require.NoError(t, err)

	id, err := f.svc.Start(ana.ID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "B-001", 1) // 25.00
	require.NoError(t, err)
	_, err = f.svc.ComputeTotals(id)
	require.NoError(t, err)

	redeemed, err := f.svc.RedeemPoints(id, 30)
	require.NoError(t, err)
	require.Equal(t, 25, redeemed)

	balance, err := f.customers.Balance(ana.ID)
	require.NoError(t, err)
	require.Equal(t, 5, balance)

	txn, err := f.svc.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, Money(0), txn.FinalTotal)
}

func TestRedeemPointsFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ana := f.customers.Register("Ana")
	_, err := f.customers.PurchaseMembership(ana.ID, serviceNow.AddDate(1, 0, 0))
	require.NoError(t, err)
	_, err = f.customers.Earn(ana.ID, 2*loyalty.PointEarnDivisor) // 2 points
	require.NoError(t, err)

	id, err := f.svc.Start(ana.ID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "B-001", 1)
	require.NoError(t, err)
	_, err = f.svc.ComputeTotals(id)
	require.NoError(t, err)

	_, err = f.svc.RedeemPoints(id, 5)
	require.ErrorIs(t, err, loyalty.ErrInsufficientPoints)

	balance, err := f.customers.Balance(ana.ID)
	require.NoError(t, err)
	require.Equal(t, 2, balance)
	txn, err := f.svc.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, Money(2500), txn.FinalTotal)
}

func TestSettleCardValidatesFormat(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	id, err := f.svc.Start("")
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "B-001", 1)
	require.NoError(t, err)
	_, err = f.svc.ComputeTotals(id)
	require.NoError(t, err)

	_, err = f.svc.Settle(context.Background(), id, MethodCard, 0, &payment.Card{
		Number: "4111111111111112", CVV: "123", Expiry: "12/27",
	})
	require.ErrorIs(t, err, payment.ErrInvalidFormat)

	// Failure left the session usable.
	done, err := f.svc.Settle(context.Background(), id, MethodCard, 0, &payment.Card{
		Number: "4111111111111111", CVV: "123", Expiry: "12/27",
	})
	require.NoError(t, err)
	require.Equal(t, Money(2500), done.AmountPaid)
	require.Zero(t, done.Change)
}

func TestPurchaseMembershipMidCheckout(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ana := f.customers.Register("Ana")

	id, err := f.svc.Start(ana.ID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(id, "B-001", 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.PurchaseMembership(id))

	txn, err := f.svc.ComputeTotals(id)
	require.NoError(t, err)
	require.Equal(t, Money(2500+5000), txn.FinalTotal)

	done, err := f.svc.Settle(context.Background(), id, MethodCash, 7500, nil)
	require.NoError(t, err)
	require.Equal(t, StateSettled, done.State)

	// Card was issued at settlement; 75.00 eligible earns 1 point.
	c, err := f.customers.Get(ana.ID)
	require.NoError(t, err)
	require.NotNil(t, c.Card)
	require.Equal(t, 1, c.Card.Points)
}

func TestConcessionValidation(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	id, err := f.svc.Start("")
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.ValidateConcession(id, "SRC-12"), loyalty.ErrInvalidFormat)
	require.NoError(t, f.svc.ValidateConcession(id, "PWD-4321"))
}
