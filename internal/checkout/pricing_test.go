package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractVATInclusive(t *testing.T) {
	rates := DefaultRates()
	// ₱160.00 gross carries ₱17.14 of 12% inclusive VAT.
	require.Equal(t, Money(1714), rates.ExtractVAT(16000))
	require.Equal(t, Money(0), rates.ExtractVAT(0))
	// ₱112.00 carries exactly ₱12.00 of VAT.
	require.Equal(t, Money(1200), rates.ExtractVAT(11200))
}

func TestSeniorDiscountRate(t *testing.T) {
	rates := DefaultRates()
	require.Equal(t, Money(4000), rates.SeniorDiscount(20000))
	require.Equal(t, Money(0), rates.SeniorDiscount(0))
}

func TestComputeTotalsOrdinary(t *testing.T) {
	got := ComputeTotals(20000, false, 0, DefaultRates())
	require.Equal(t, Money(20000), got.Subtotal)
	require.Zero(t, got.SeniorDiscount)
	require.Equal(t, Money(2142), got.VAT) // 200.00*12/112
	require.Equal(t, Money(20000), got.FinalTotal)
}

func TestComputeTotalsSenior(t *testing.T) {
	// Subtotal 200.00, discount 40.00, VAT extracted from the discounted
	// 160.00, final total stays 160.00 (VAT never additive).
	got := ComputeTotals(20000, true, 0, DefaultRates())
	require.Equal(t, Money(4000), got.SeniorDiscount)
	require.Equal(t, Money(1714), got.VAT)
	require.Equal(t, Money(16000), got.FinalTotal)
}

func TestComputeTotalsMembershipFeeAfterDiscount(t *testing.T) {
	got := ComputeTotals(20000, true, 5000, DefaultRates())
	require.Equal(t, Money(4000), got.SeniorDiscount)
	require.Equal(t, Money(1714), got.VAT) // fee is not VATable
	require.Equal(t, Money(21000), got.FinalTotal)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "0.00", FormatMoney(0))
	require.Equal(t, "1714.05", FormatMoney(171405))
	require.Equal(t, "0.07", FormatMoney(7))
	require.Equal(t, "-25.50", FormatMoney(-2550))
}
