package inventory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
)

// ErrInsufficientStock is returned when a reservation asks for more units than
// are on hand.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrAlreadyReleased is returned when a reservation is released twice.
var ErrAlreadyReleased = errors.New("inventory: reservation already released")

// ErrInvalidAmount is returned for non-positive quantities or adjustments that
// would drive stock negative.
var ErrInvalidAmount = errors.New("inventory: invalid amount")

// ErrUnknownProduct is returned when a product identifier is not registered.
var ErrUnknownProduct = errors.New("inventory: unknown product")

// ErrDuplicateProduct is returned when registering an identifier twice.
var ErrDuplicateProduct = errors.New("inventory: product already registered")

// DefaultLowStockThreshold flags items with five or fewer units on hand.
const DefaultLowStockThreshold = 5

// DefaultExpiryWindow flags perishables expiring within three days.
const DefaultExpiryWindow = 3 * 24 * time.Hour

// Entry pairs a product with its current on-hand quantity.
type Entry struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Reservation records stock held for an open checkout line. It stays valid
// until released or until the transaction settles.
type Reservation struct {
	ProductID string
	Quantity  int
	released  bool
}

type item struct {
	mu      sync.Mutex
	product catalog.Product
	qty     int
}

// Ledger tracks on-hand quantities with early reservation: Reserve decrements
// immediately so two lines cannot hold the same unit. Each product has its own
// mutex; operations never lock more than one product at a time.
type Ledger struct {
	mu    sync.RWMutex
	items map[string]*item

	lowStockThreshold int
	expiryWindow      time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLowStockThreshold overrides the low-stock report threshold.
func WithLowStockThreshold(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.lowStockThreshold = n
		}
	}
}

// WithExpiryWindow overrides the expiring-soon report window.
func WithExpiryWindow(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.expiryWindow = d
		}
	}
}

// NewLedger constructs an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		items:             make(map[string]*item),
		lowStockThreshold: DefaultLowStockThreshold,
		expiryWindow:      DefaultExpiryWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register adds a product with an initial quantity.
func (l *Ledger) Register(p catalog.Product, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity %d: %w", qty, ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.items[p.ID]; ok {
		return fmt.Errorf("%s: %w", p.ID, ErrDuplicateProduct)
	}
	l.items[p.ID] = &item{product: p, qty: qty}
	return nil
}

// Get returns the current entry for a product.
func (l *Ledger) Get(productID string) (Entry, error) {
	it, err := l.lookup(productID)
	if err != nil {
		return Entry{}, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return Entry{Product: it.product, Quantity: it.qty}, nil
}

// Reserve holds qty units of a product, decrementing on-hand stock
// immediately. The whole request fails when fewer units are available.
func (l *Ledger) Reserve(productID string, qty int) (*Reservation, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", qty, ErrInvalidAmount)
	}
	it, err := l.lookup(productID)
	if err != nil {
		return nil, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.qty < qty {
		return nil, fmt.Errorf("%s: want %d have %d: %w", productID, qty, it.qty, ErrInsufficientStock)
	}
	it.qty -= qty
	return &Reservation{ProductID: productID, Quantity: qty}, nil
}

// Release returns a reservation's units to stock. Releasing the same
// reservation twice is a caller bug and reports ErrAlreadyReleased.
func (l *Ledger) Release(r *Reservation) error {
	if r == nil {
		return fmt.Errorf("nil reservation: %w", ErrInvalidAmount)
	}
	it, err := l.lookup(r.ProductID)
	if err != nil {
		return err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if r.released {
		return fmt.Errorf("%s: %w", r.ProductID, ErrAlreadyReleased)
	}
	r.released = true
	it.qty += r.Quantity
	return nil
}

// Consume finalizes a reservation at settlement so the units are never
// restored. A consumed reservation can no longer be released.
func (l *Ledger) Consume(r *Reservation) error {
	if r == nil {
		return fmt.Errorf("nil reservation: %w", ErrInvalidAmount)
	}
	it, err := l.lookup(r.ProductID)
	if err != nil {
		return err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if r.released {
		return fmt.Errorf("%s: %w", r.ProductID, ErrAlreadyReleased)
	}
	r.released = true
	return nil
}

// Adjust applies a manual stock correction. Adjustments that would leave the
// quantity negative are rejected without change.
func (l *Ledger) Adjust(productID string, delta int) error {
	it, err := l.lookup(productID)
	if err != nil {
		return err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.qty+delta < 0 {
		return fmt.Errorf("%s: delta %d on %d: %w", productID, delta, it.qty, ErrInvalidAmount)
	}
	it.qty += delta
	return nil
}

// LowStock lists entries at or below the threshold, ordered by category prefix
// then numeric identifier suffix.
func (l *Ledger) LowStock() []Entry {
	return l.collect(func(e Entry) bool {
		return e.Quantity <= l.lowStockThreshold
	})
}

// ExpiringSoon lists perishable entries whose expiry falls on or before
// asOf plus the configured window, in report order.
func (l *Ledger) ExpiringSoon(asOf time.Time) []Entry {
	cutoff := asOf.Add(l.expiryWindow)
	return l.collect(func(e Entry) bool {
		return e.Product.Perishable() && !e.Product.Expiry.After(cutoff)
	})
}

// RemoveExpired pulls perishables whose expiry is strictly before asOf off the
// shelf, zeroing their quantity, and returns what was removed.
func (l *Ledger) RemoveExpired(asOf time.Time) []Entry {
	l.mu.RLock()
	items := make([]*item, 0, len(l.items))
	for _, it := range l.items {
		items = append(items, it)
	}
	l.mu.RUnlock()

	var removed []Entry
	for _, it := range items {
		it.mu.Lock()
		if it.product.Perishable() && it.product.Expiry.Before(asOf) && it.qty > 0 {
			removed = append(removed, Entry{Product: it.product, Quantity: it.qty})
			it.qty = 0
		}
		it.mu.Unlock()
	}
	sortEntries(removed)
	return removed
}

// Snapshot returns every entry in report order, for persistence.
func (l *Ledger) Snapshot() []Entry {
	return l.collect(func(Entry) bool { return true })
}

// Restore replaces the ledger contents with a previously saved snapshot.
func (l *Ledger) Restore(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make(map[string]*item, len(entries))
	for _, e := range entries {
		l.items[e.Product.ID] = &item{product: e.Product, qty: e.Quantity}
	}
}

func (l *Ledger) lookup(productID string) (*item, error) {
	l.mu.RLock()
	it, ok := l.items[productID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", productID, ErrUnknownProduct)
	}
	return it, nil
}

func (l *Ledger) collect(keep func(Entry) bool) []Entry {
	l.mu.RLock()
	items := make([]*item, 0, len(l.items))
	for _, it := range l.items {
		items = append(items, it)
	}
	l.mu.RUnlock()

	var out []Entry
	for _, it := range items {
		it.mu.Lock()
		e := Entry{Product: it.product, Quantity: it.qty}
		it.mu.Unlock()
		if keep(e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return catalog.CompareIDs(entries[i].Product.ID, entries[j].Product.ID) < 0
	})
}
