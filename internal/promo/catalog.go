package promo

import (
	"fmt"
	"sync"
	"time"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
)

// Draft is the caller-supplied part of a sale; the catalog assigns the
// identifier.
type Draft struct {
	Name   string    `json:"name" validate:"required"`
	Target string    `json:"target" validate:"required"`
	Kind   Kind      `json:"kind" validate:"required,oneof=percent fixed"`
	Value  int64     `json:"value" validate:"required"`
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required"`
}

// Catalog holds promotional sales in insertion order and hands out SALE-%04d
// identifiers from a monotonic counter.
type Catalog struct {
	mu     sync.RWMutex
	sales  []*Sale
	nextID int
}

// NewCatalog constructs an empty sale catalog.
func NewCatalog() *Catalog {
	return &Catalog{nextID: 1}
}

// Add validates a draft and registers it as an active sale.
func (c *Catalog) Add(d Draft) (Sale, error) {
	s := Sale{
		Name:   d.Name,
		Target: d.Target,
		Kind:   d.Kind,
		Value:  d.Value,
		Start:  d.Start,
		End:    d.End,
		Active: true,
	}
	if err := s.Validate(); err != nil {
		return Sale{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s.ID = fmt.Sprintf("SALE-%04d", c.nextID)
	c.nextID++
	c.sales = append(c.sales, &s)
	return s, nil
}

// Get returns the sale with the given identifier.
func (c *Catalog) Get(id string) (Sale, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.sales {
		if s.ID == id {
			return *s, nil
		}
	}
	return Sale{}, fmt.Errorf("%s: %w", id, ErrUnknownSale)
}

// List returns every sale in catalog order.
func (c *Catalog) List() []Sale {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Sale, 0, len(c.sales))
	for _, s := range c.sales {
		out = append(out, *s)
	}
	return out
}

// ActiveAt returns the sales running at the given instant, in catalog order.
func (c *Catalog) ActiveAt(asOf time.Time) []Sale {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Sale
	for _, s := range c.sales {
		if s.ActiveAt(asOf) {
			out = append(out, *s)
		}
	}
	return out
}

// ResolveBestSale picks the applicable active sale with the strictly largest
// centavo reduction on the product's current price. On ties the earlier sale
// in catalog order keeps winning. A sale must reduce the price by more than
// zero to qualify.
func (c *Catalog) ResolveBestSale(p catalog.Product, asOf time.Time) (Sale, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var best *Sale
	var bestDiscount int64
	for _, s := range c.sales {
		if !s.ActiveAt(asOf) || !s.AppliesTo(p) {
			continue
		}
		if d := s.DiscountOn(p.Price); d > bestDiscount {
			best = s
			bestDiscount = d
		}
	}
	if best == nil {
		return Sale{}, fmt.Errorf("%s: %w", p.ID, ErrNoApplicableSale)
	}
	return *best, nil
}

// DiscountedPrice returns the product's unit price after its best applicable
// sale, floored at zero. Without an applicable sale the raw price is returned.
func (c *Catalog) DiscountedPrice(p catalog.Product, asOf time.Time) int64 {
	best, err := c.ResolveBestSale(p, asOf)
	if err != nil {
		return p.Price
	}
	return p.Price - best.DiscountOn(p.Price)
}

// End deactivates a sale without removing it from the catalog.
func (c *Catalog) End(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sales {
		if s.ID == id {
			s.Active = false
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, ErrUnknownSale)
}

// Remove deletes a sale from the catalog. Assigned identifiers are never
// reused.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sales {
		if s.ID == id {
			c.sales = append(c.sales[:i], c.sales[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, ErrUnknownSale)
}

// SweepExpired removes sales whose window ended strictly before asOf and
// returns how many were removed. A sale ending exactly at asOf survives.
func (c *Catalog) SweepExpired(asOf time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.sales[:0]
	removed := 0
	for _, s := range c.sales {
		if s.End.Before(asOf) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	c.sales = kept
	return removed
}

// Snapshot returns every sale in catalog order, for persistence.
func (c *Catalog) Snapshot() []Sale {
	return c.List()
}

// Restore replaces the catalog contents and resumes identifier assignment
// after the highest restored sequence.
func (c *Catalog) Restore(sales []Sale) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sales = make([]*Sale, 0, len(sales))
	next := 1
	for i := range sales {
		s := sales[i]
		c.sales = append(c.sales, &s)
		var seq int
		if _, err := fmt.Sscanf(s.ID, "SALE-%d", &seq); err == nil && seq >= next {
			next = seq + 1
		}
	}
	c.nextID = next
}
