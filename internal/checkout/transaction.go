package checkout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
)

// ErrInvalidState is returned when an operation is attempted outside the
// state it is allowed in.
var ErrInvalidState = errors.New("checkout: invalid transaction state")

// ErrInsufficientPayment is returned when cash tendered does not cover the
// final total.
var ErrInsufficientPayment = errors.New("checkout: insufficient payment")

// ErrEmptyCart is returned when totals are computed over a cart with no
// lines and no membership fee.
var ErrEmptyCart = errors.New("checkout: empty cart")

// State tracks the transaction lifecycle. There are no transitions back out
// of Settled or Abandoned.
type State string

const (
	StateOpen           State = "open"
	StateTotalsComputed State = "totals_computed"
	StateSettled        State = "settled"
	StateAbandoned      State = "abandoned"
)

// Method is the payment method used at settlement.
type Method string

const (
	MethodCash Method = "cash"
	MethodCard Method = "card"
)

// Line is a cart snapshot entry: product, reserved quantity and the unit
// price captured at add time (promo-discounted when that policy is on).
type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice Money  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	SaleID    string `json:"sale_id,omitempty"`
}

// Subtotal returns the line's contribution to the cart subtotal.
func (l Line) Subtotal() Money {
	return l.UnitPrice * Money(l.Quantity)
}

// Transaction is one checkout attempt. It becomes immutable once Settled and
// is discarded (never persisted) when Abandoned.
type Transaction struct {
	ID              string    `json:"id"`
	State           State     `json:"state"`
	Lines           []Line    `json:"lines"`
	CustomerID      string    `json:"customer_id,omitempty"`
	CustomerName    string    `json:"customer_name,omitempty"`
	SeniorValidated bool      `json:"senior_validated"`
	Totals          Totals    `json:"totals"`
	PointsDiscount  Money     `json:"points_discount"`
	PointsRedeemed  int       `json:"points_redeemed"`
	FinalTotal      Money     `json:"final_total"`
	AmountPaid      Money     `json:"amount_paid"`
	Change          Money     `json:"change"`
	Method          Method    `json:"method,omitempty"`
	SettledAt       time.Time `json:"settled_at,omitempty"`

	// eligible is the point-earning base, fixed at settlement as
	// finalTotal plus the points discount so redeeming never reduces
	// future earning.
	eligible Money
	rates    Rates
	fee      Money
}

// NewTransaction opens a checkout attempt.
func NewTransaction(id string, rates Rates) *Transaction {
	return &Transaction{ID: id, State: StateOpen, rates: rates}
}

// AddLine appends a cart snapshot line. Allowed only while Open.
func (t *Transaction) AddLine(l Line) error {
	if t.State != StateOpen {
		return fmt.Errorf("add line in %s: %w", t.State, ErrInvalidState)
	}
	t.Lines = append(t.Lines, l)
	return nil
}

// RemoveLine drops the line for a product. Allowed only while Open.
func (t *Transaction) RemoveLine(productID string) (Line, error) {
	if t.State != StateOpen {
		return Line{}, fmt.Errorf("remove line in %s: %w", t.State, ErrInvalidState)
	}
	for i, l := range t.Lines {
		if l.ProductID == productID {
			t.Lines = append(t.Lines[:i], t.Lines[i+1:]...)
			return l, nil
		}
	}
	return Line{}, fmt.Errorf("no line for %s: %w", productID, ErrInvalidState)
}

// AddMembershipFee schedules the card purchase fee for inclusion in the final
// total. Allowed only while Open.
func (t *Transaction) AddMembershipFee(fee Money) error {
	if t.State != StateOpen {
		return fmt.Errorf("add membership fee in %s: %w", t.State, ErrInvalidState)
	}
	t.fee = fee
	return nil
}

// ComputeTotals runs the discount pipeline and moves to TotalsComputed.
func (t *Transaction) ComputeTotals(seniorValidated bool) error {
	if t.State != StateOpen {
		return fmt.Errorf("compute totals in %s: %w", t.State, ErrInvalidState)
	}
	if len(t.Lines) == 0 && t.fee == 0 {
		return ErrEmptyCart
	}
	var subtotal Money
	for _, l := range t.Lines {
		subtotal += l.Subtotal()
	}
	t.SeniorValidated = seniorValidated
	t.Totals = ComputeTotals(subtotal, seniorValidated, t.fee, t.rates)
	t.FinalTotal = t.Totals.FinalTotal
	t.State = StateTotalsComputed
	return nil
}

// RedeemablePoints clamps a redemption request to what the final total can
// absorb at one peso per point.
func (t *Transaction) RedeemablePoints(requested int) int {
	max := int(t.FinalTotal / 100)
	if requested > max {
		return max
	}
	return requested
}

// ApplyRedemption records an already-debited point redemption against the
// final total. The caller clamps via RedeemablePoints first; the final total
// never goes below zero.
func (t *Transaction) ApplyRedemption(points int) error {
	if t.State != StateTotalsComputed {
		return fmt.Errorf("redeem in %s: %w", t.State, ErrInvalidState)
	}
	discount := Money(points) * 100
	if points < 0 || discount > t.FinalTotal {
		return fmt.Errorf("points %d on %s: %w", points, FormatMoney(t.FinalTotal), loyalty.ErrInsufficientPoints)
	}
	t.PointsRedeemed += points
	t.PointsDiscount += discount
	t.FinalTotal -= discount
	return nil
}

// Settle accepts payment and finalizes the transaction. Cash must cover the
// final total and yields change; card is exact-amount. The point-earning base
// is fixed here.
func (t *Transaction) Settle(amountPaid Money, method Method, at time.Time) error {
	if t.State != StateTotalsComputed {
		return fmt.Errorf("settle in %s: %w", t.State, ErrInvalidState)
	}
	switch method {
	case MethodCash:
		if amountPaid < t.FinalTotal {
			return fmt.Errorf("paid %s due %s: %w", FormatMoney(amountPaid), FormatMoney(t.FinalTotal), ErrInsufficientPayment)
		}
		t.AmountPaid = amountPaid
		t.Change = amountPaid - t.FinalTotal
	case MethodCard:
		t.AmountPaid = t.FinalTotal
		t.Change = 0
	default:
		return fmt.Errorf("method %q: %w", method, ErrInvalidState)
	}
	t.Method = method
	t.SettledAt = at
	t.eligible = t.FinalTotal + t.PointsDiscount
	t.State = StateSettled
	return nil
}

// Abandon discards the attempt. Valid from Open or TotalsComputed; the caller
// releases every outstanding reservation.
func (t *Transaction) Abandon() error {
	if t.State != StateOpen && t.State != StateTotalsComputed {
		return fmt.Errorf("abandon in %s: %w", t.State, ErrInvalidState)
	}
	t.State = StateAbandoned
	return nil
}

// EligibleForEarning returns the point-earning base fixed at settlement.
func (t *Transaction) EligibleForEarning() Money {
	return t.eligible
}

// PointsEarned returns one point per full ₱50.00 of the earning base, only
// after settlement.
func (t *Transaction) PointsEarned() int {
	if t.State != StateSettled {
		return 0
	}
	return int(t.eligible / loyalty.PointEarnDivisor)
}

// Receipt renders the printed receipt for a settled transaction.
func (t *Transaction) Receipt() string {
	var b strings.Builder
	b.WriteString("====================================\n")
	b.WriteString("      DLSU CONVENIENCE STORE      \n")
	b.WriteString("====================================\n")
	fmt.Fprintf(&b, "Date/Time: %s\n", t.SettledAt.Format("2006-01-02 15:04:05"))
	if t.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", t.CustomerName)
	}
	if t.SeniorValidated {
		b.WriteString("Status: Senior/PWD\n")
	}
	b.WriteString("------------------------------------\n")
	b.WriteString("Items:\n")
	for _, l := range t.Lines {
		fmt.Fprintf(&b, "%s x%d @ %s = %s\n", l.Name, l.Quantity, FormatMoney(l.UnitPrice), FormatMoney(l.Subtotal()))
	}
	b.WriteString("------------------------------------\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", FormatMoney(t.Totals.Subtotal))
	if t.Totals.SeniorDiscount > 0 {
		fmt.Fprintf(&b, "Senior Discount: -%s\n", FormatMoney(t.Totals.SeniorDiscount))
	}
	if t.PointsDiscount > 0 {
		fmt.Fprintf(&b, "Points Redeemed: -%s\n", FormatMoney(t.PointsDiscount))
	}
	if t.Totals.MembershipFee > 0 {
		fmt.Fprintf(&b, "Membership Fee: %s\n", FormatMoney(t.Totals.MembershipFee))
	}
	fmt.Fprintf(&b, "VAT (12%% included): %s\n", FormatMoney(t.Totals.VAT))
	b.WriteString("------------------------------------\n")
	fmt.Fprintf(&b, "TOTAL DUE: %s\n", FormatMoney(t.FinalTotal))
	fmt.Fprintf(&b, "AMOUNT PAID: %s\n", FormatMoney(t.AmountPaid))
	fmt.Fprintf(&b, "CHANGE: %s\n", FormatMoney(t.Change))
	fmt.Fprintf(&b, "Payment Method: %s\n", t.Method)
	if earned := t.PointsEarned(); earned > 0 {
		fmt.Fprintf(&b, "Points Earned: %d\n", earned)
	}
	b.WriteString("====================================\n")
	return b.String()
}

// SummaryLine renders the one-line CSV record appended to the sales log:
// timestamp, customer, final total, method.
func (t *Transaction) SummaryLine() string {
	customer := t.CustomerID
	if customer == "" {
		customer = "walk-in"
	}
	return fmt.Sprintf("%s,%s,%s,%s",
		t.SettledAt.Format("2006-01-02 15:04:05"),
		customer,
		FormatMoney(t.FinalTotal),
		t.Method,
	)
}
