package loyalty

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientPoints is returned when a redemption asks for more points
// than the card holds.
var ErrInsufficientPoints = errors.New("loyalty: insufficient points")

// ErrExpiredCard is returned when a membership card is past its expiry.
var ErrExpiredCard = errors.New("loyalty: membership card expired")

// PointEarnDivisor is the centavo amount that earns one point (₱50.00).
const PointEarnDivisor int64 = 5000

// MembershipFee is the one-time card purchase price in centavos (₱50.00).
const MembershipFee int64 = 5000

// Card is a membership point ledger. One point redeems for one peso. Points
// are whole and the balance never goes negative.
type Card struct {
	ID     string    `json:"id"`
	Points int       `json:"points"`
	Expiry time.Time `json:"expiry"`
}

// ExpiredAt reports whether the card is past its expiry at the given instant.
func (c *Card) ExpiredAt(t time.Time) bool {
	return t.After(c.Expiry)
}

// Earn credits one point per full ₱50.00 of the eligible amount and returns
// how many points were added. Amounts below the divisor earn nothing; earning
// never fails.
func (c *Card) Earn(amountCentavos int64) int {
	if amountCentavos < PointEarnDivisor {
		return 0
	}
	earned := int(amountCentavos / PointEarnDivisor)
	c.Points += earned
	return earned
}

// Use debits points for a redemption. The balance is left untouched when it
// cannot cover the request.
func (c *Card) Use(points int) error {
	if points < 0 {
		return fmt.Errorf("points %d: %w", points, ErrInsufficientPoints)
	}
	if points > c.Points {
		return fmt.Errorf("want %d have %d: %w", points, c.Points, ErrInsufficientPoints)
	}
	c.Points -= points
	return nil
}

// Refund returns previously debited points, used when a redemption is clamped
// below what was requested.
func (c *Card) Refund(points int) {
	if points > 0 {
		c.Points += points
	}
}
