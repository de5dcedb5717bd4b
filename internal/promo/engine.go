package promo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
)

// ErrInvalidDiscount is returned when a sale is defined with an out-of-range
// value or an end date before its start date.
var ErrInvalidDiscount = errors.New("promo: invalid discount")

// ErrNoApplicableSale is returned when no active sale matches a product.
var ErrNoApplicableSale = errors.New("promo: no applicable sale")

// ErrUnknownSale is returned when a sale identifier is not in the catalog.
var ErrUnknownSale = errors.New("promo: unknown sale")

// Kind selects how a sale's value is interpreted.
type Kind string

const (
	// KindPercent discounts are expressed in basis points of the unit price.
	KindPercent Kind = "percent"
	// KindFixed discounts are a flat centavo amount per unit.
	KindFixed Kind = "fixed"
)

const wildcardPrefix = "ALL-"

// Sale is a pure promotional rule. It targets either one product by exact
// identifier or a whole category via the ALL-<prefix> wildcard.
type Sale struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Target string    `json:"target"`
	Kind   Kind      `json:"kind"`
	Value  int64     `json:"value"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Active bool      `json:"active"`
}

// Validate checks the rule's value range, window and target shape.
func (s Sale) Validate() error {
	switch s.Kind {
	case KindPercent:
		if s.Value <= 0 || s.Value > 10000 {
			return fmt.Errorf("percent value %d bps: %w", s.Value, ErrInvalidDiscount)
		}
	case KindFixed:
		if s.Value <= 0 {
			return fmt.Errorf("fixed value %d: %w", s.Value, ErrInvalidDiscount)
		}
	default:
		return fmt.Errorf("kind %q: %w", s.Kind, ErrInvalidDiscount)
	}
	if s.End.Before(s.Start) {
		return fmt.Errorf("window ends before it starts: %w", ErrInvalidDiscount)
	}
	if err := validateTarget(s.Target); err != nil {
		return err
	}
	return nil
}

// AppliesTo reports whether the sale targets the given product.
func (s Sale) AppliesTo(p catalog.Product) bool {
	if strings.HasPrefix(s.Target, wildcardPrefix) {
		prefix, _, err := catalog.ParseID(p.ID)
		if err != nil {
			return false
		}
		return strings.TrimPrefix(s.Target, wildcardPrefix) == prefix
	}
	return s.Target == p.ID
}

// ActiveAt reports whether the sale is switched on and its window contains t.
func (s Sale) ActiveAt(t time.Time) bool {
	return s.Active && !t.Before(s.Start) && !t.After(s.End)
}

// DiscountOn returns the effective centavo reduction on a unit price. A fixed
// discount larger than the price is capped so the price never goes negative.
func (s Sale) DiscountOn(price int64) int64 {
	var raw int64
	switch s.Kind {
	case KindPercent:
		raw = price * s.Value / 10000
	case KindFixed:
		raw = s.Value
	}
	if raw > price {
		return price
	}
	if raw < 0 {
		return 0
	}
	return raw
}

func validateTarget(target string) error {
	if strings.HasPrefix(target, wildcardPrefix) {
		prefix := strings.TrimPrefix(target, wildcardPrefix)
		if _, ok := catalog.CategoryFromPrefix(prefix); !ok || len(prefix) != 1 {
			return fmt.Errorf("target %q: %w", target, ErrInvalidDiscount)
		}
		return nil
	}
	if _, _, err := catalog.ParseID(target); err != nil {
		return fmt.Errorf("target %q: %w", target, ErrInvalidDiscount)
	}
	return nil
}
