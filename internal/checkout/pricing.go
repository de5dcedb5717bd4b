package checkout

import "fmt"

// Money is a centavo amount. All arithmetic is integer; two-decimal display
// happens only at the formatting edge.
type Money = int64

const (
	// DefaultVATBps is the inclusive VAT rate (12%).
	DefaultVATBps int64 = 1200
	// DefaultSeniorDiscountBps is the senior/PWD discount rate (20%).
	DefaultSeniorDiscountBps int64 = 2000
)

// Rates carries the tax and discount rates applied by the pipeline.
type Rates struct {
	VATBps            int64
	SeniorDiscountBps int64
}

// DefaultRates returns the statutory Philippine rates.
func DefaultRates() Rates {
	return Rates{VATBps: DefaultVATBps, SeniorDiscountBps: DefaultSeniorDiscountBps}
}

// ExtractVAT returns the VAT portion already included in a gross amount.
// With 1200 bps this is amount*12/112. The result is informational and is
// never added to a payable total.
func (r Rates) ExtractVAT(amount Money) Money {
	if amount <= 0 || r.VATBps <= 0 {
		return 0
	}
	return amount * r.VATBps / (10000 + r.VATBps)
}

// SeniorDiscount returns the concession discount on a subtotal.
func (r Rates) SeniorDiscount(subtotal Money) Money {
	if subtotal <= 0 {
		return 0
	}
	return subtotal * r.SeniorDiscountBps / 10000
}

// Totals is the result of the fixed-order totals computation.
type Totals struct {
	Subtotal       Money `json:"subtotal"`
	SeniorDiscount Money `json:"senior_discount"`
	VAT            Money `json:"vat"`
	MembershipFee  Money `json:"membership_fee"`
	FinalTotal     Money `json:"final_total"`
}

// ComputeTotals runs the discount pipeline over line subtotals. For validated
// senior/PWD customers the 20% discount comes off the subtotal first and VAT
// is extracted from the discounted amount; otherwise VAT is extracted from the
// subtotal directly. The membership fee, when present, joins the payable total
// after discount and VAT.
func ComputeTotals(subtotal Money, seniorValidated bool, membershipFee Money, rates Rates) Totals {
	t := Totals{Subtotal: subtotal, MembershipFee: membershipFee}
	discounted := subtotal
	if seniorValidated {
		t.SeniorDiscount = rates.SeniorDiscount(subtotal)
		discounted = subtotal - t.SeniorDiscount
	}
	t.VAT = rates.ExtractVAT(discounted)
	t.FinalTotal = discounted + membershipFee
	return t
}

// FormatMoney renders a centavo amount with two decimals.
func FormatMoney(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}
