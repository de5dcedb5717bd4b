package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
)

var settleTime = time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)

func openTxn(t *testing.T, lines ...Line) *Transaction {
	t.Helper()
	txn := NewTransaction("tx-1", DefaultRates())
	for _, l := range lines {
		require.NoError(t, txn.AddLine(l))
	}
	return txn
}

func TestSingleLineSubtotal(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", Name: "Chips", UnitPrice: 10000, Quantity: 2})
	require.NoError(t, txn.ComputeTotals(false))
	require.Equal(t, Money(20000), txn.Totals.Subtotal)
	require.Equal(t, Money(20000), txn.FinalTotal)
}

func TestSeniorScenario(t *testing.T) {
	// F-001 price 100.00, cart 2 units, senior validated.
	txn := openTxn(t, Line{ProductID: "F-001", Name: "Chips", UnitPrice: 10000, Quantity: 2})
	require.NoError(t, txn.ComputeTotals(true))
	require.Equal(t, Money(20000), txn.Totals.Subtotal)
	require.Equal(t, Money(4000), txn.Totals.SeniorDiscount)
	require.Equal(t, Money(16000), txn.FinalTotal)
	require.Equal(t, Money(1714), txn.Totals.VAT)
}

func TestComputeTotalsRequiresOpen(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 100, Quantity: 1})
	require.NoError(t, txn.ComputeTotals(false))
	require.ErrorIs(t, txn.ComputeTotals(false), ErrInvalidState)
	require.ErrorIs(t, txn.AddLine(Line{ProductID: "B-001"}), ErrInvalidState)
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	txn := NewTransaction("tx-1", DefaultRates())
	require.ErrorIs(t, txn.ComputeTotals(false), ErrEmptyCart)
}

func TestRedemptionClamp(t *testing.T) {
	// Final total 25.00: a 30-point request clamps to 25.
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 2500, Quantity: 1})
	require.NoError(t, txn.ComputeTotals(false))

	require.Equal(t, 25, txn.RedeemablePoints(30))
	require.NoError(t, txn.ApplyRedemption(25))
	require.Equal(t, Money(0), txn.FinalTotal)
	require.Equal(t, 25, txn.PointsRedeemed)
	require.Equal(t, Money(2500), txn.PointsDiscount)
}

func TestApplyRedemptionNeverBelowZero(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 2500, Quantity: 1})
	require.NoError(t, txn.ComputeTotals(false))
	require.ErrorIs(t, txn.ApplyRedemption(26), loyalty.ErrInsufficientPoints)
	require.Equal(t, Money(2500), txn.FinalTotal)
}

func TestSettleCash(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 16000, Quantity: 1})
	require.NoError(t, txn.ComputeTotals(false))

	require.ErrorIs(t, txn.Settle(15000, MethodCash, settleTime), ErrInsufficientPayment)
	require.Equal(t, StateTotalsComputed, txn.State)

	require.NoError(t, txn.Settle(20000, MethodCash, settleTime))
	require.Equal(t, StateSettled, txn.State)
	require.Equal(t, Money(4000), txn.Change)
	require.Equal(t, Money(20000), txn.AmountPaid)
}

func TestSettleCardExactAmount(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 16000, Quantity: 1})
	require.NoError(t, txn.ComputeTotals(false))
	require.NoError(t, txn.Settle(0, MethodCard, settleTime))
	require.Equal(t, Money(16000), txn.AmountPaid)
	require.Zero(t, txn.Change)
}

func TestEarningBaseFixedBeforeRedemption(t *testing.T) {
	// 250.00 total, 100 points redeemed: earning base stays 250.00, so 5 points.
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 25000, Quantity: 1})
	require.NoError(t, txn.ComputeTotals(false))
	require.NoError(t, txn.ApplyRedemption(100))
	require.Equal(t, Money(15000), txn.FinalTotal)

	require.Zero(t, txn.PointsEarned()) // not settled yet
	require.NoError(t, txn.Settle(15000, MethodCash, settleTime))
	require.Equal(t, Money(25000), txn.EligibleForEarning())
	require.Equal(t, 5, txn.PointsEarned())
}

func TestAbandonTransitions(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 100, Quantity: 1})
	require.NoError(t, txn.Abandon())
	require.Equal(t, StateAbandoned, txn.State)
	require.ErrorIs(t, txn.Abandon(), ErrInvalidState)

	settled := openTxn(t, Line{ProductID: "F-001", UnitPrice: 100, Quantity: 1})
	require.NoError(t, settled.ComputeTotals(false))
	require.NoError(t, settled.Settle(100, MethodCash, settleTime))
	require.ErrorIs(t, settled.Abandon(), ErrInvalidState)
}

func TestRemoveLine(t *testing.T) {
	txn := openTxn(t,
		Line{ProductID: "F-001", UnitPrice: 100, Quantity: 1},
		Line{ProductID: "B-001", UnitPrice: 200, Quantity: 2},
	)
	removed, err := txn.RemoveLine("F-001")
	require.NoError(t, err)
	require.Equal(t, "F-001", removed.ProductID)
	require.Len(t, txn.Lines, 1)

	_, err = txn.RemoveLine("F-001")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestReceiptAndSummaryLine(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", Name: "Chips", UnitPrice: 10000, Quantity: 2})
	txn.CustomerID = "DLSUser-001"
	txn.CustomerName = "Ana"
	require.NoError(t, txn.ComputeTotals(true))
	require.NoError(t, txn.Settle(16000, MethodCash, settleTime))

	receipt := txn.Receipt()
	require.Contains(t, receipt, "DLSU CONVENIENCE STORE")
	require.Contains(t, receipt, "Customer: Ana")
	require.Contains(t, receipt, "Status: Senior/PWD")
	require.Contains(t, receipt, "Chips x2 @ 100.00 = 200.00")
	require.Contains(t, receipt, "Senior Discount: -40.00")
	require.Contains(t, receipt, "TOTAL DUE: 160.00")
	require.Contains(t, receipt, "Points Earned: 3")

	summary := txn.SummaryLine()
	require.Equal(t, "2026-08-23 14:30:00,DLSUser-001,160.00,cash", summary)
	require.Equal(t, 4, len(strings.Split(summary, ",")))
}

func TestSummaryLineWalkIn(t *testing.T) {
	txn := openTxn(t, Line{ProductID: "F-001", UnitPrice: 100, Quantity: 1})
	require.NoError(t, txn.ComputeTotals(false))
	require.NoError(t, txn.Settle(100, MethodCash, settleTime))
	require.Equal(t, "2026-08-23 14:30:00,walk-in,1.00,cash", txn.SummaryLine())
}
