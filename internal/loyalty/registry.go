package loyalty

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ErrInvalidFormat is returned when an identifier does not match its expected
// shape.
var ErrInvalidFormat = errors.New("loyalty: invalid identifier format")

// ErrUnknownCustomer is returned when a customer identifier is not registered.
var ErrUnknownCustomer = errors.New("loyalty: unknown customer")

// ErrAlreadyMember is returned when a customer who already holds a card tries
// to buy another.
var ErrAlreadyMember = errors.New("loyalty: customer already holds a card")

// ErrNotMember is returned when a point operation targets a customer without
// a card.
var ErrNotMember = errors.New("loyalty: customer holds no card")

var (
	concessionIDPattern = regexp.MustCompile(`^(SRC|PWD)-\d{4}$`)
	customerIDPattern   = regexp.MustCompile(`^DLSUser-\d{3,}$`)
	cardIDPattern       = regexp.MustCompile(`^DLSUCS-\d{8}$`)
)

// ValidateConcessionID checks a senior-citizen (SRC) or PWD identifier. The
// discount eligibility it unlocks lasts for one checkout session only.
func ValidateConcessionID(id string) error {
	if !concessionIDPattern.MatchString(strings.TrimSpace(id)) {
		return fmt.Errorf("%q: %w", id, ErrInvalidFormat)
	}
	return nil
}

// Customer is a registry entry; Card is nil until a membership is purchased.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Card *Card  `json:"card,omitempty"`
}

// clone detaches the card so callers never alias registry state.
func (c Customer) clone() Customer {
	if c.Card != nil {
		card := *c.Card
		c.Card = &card
	}
	return c
}

// Registry manages customers and their membership cards. Identifier sequences
// are monotonic and survive snapshot round-trips.
type Registry struct {
	mu           sync.RWMutex
	customers    []*Customer
	byID         map[string]*Customer
	nextCustomer int
	nextCard     int
	now          func() time.Time
}

// NewRegistry constructs an empty customer registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:         make(map[string]*Customer),
		nextCustomer: 1,
		nextCard:     1,
		now:          time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (r *Registry) WithNow(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Register adds a customer and assigns the next DLSUser identifier.
func (r *Registry) Register(name string) Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Customer{ID: fmt.Sprintf("DLSUser-%03d", r.nextCustomer), Name: name}
	r.nextCustomer++
	r.customers = append(r.customers, c)
	r.byID[c.ID] = c
	return *c
}

// Get returns the customer with the given identifier.
func (r *Registry) Get(id string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return Customer{}, fmt.Errorf("%s: %w", id, ErrUnknownCustomer)
	}
	return c.clone(), nil
}

// List returns every customer in registration order.
func (r *Registry) List() []Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c.clone())
	}
	return out
}

// PurchaseMembership issues a card to a customer who does not yet hold one.
// The ₱50.00 fee is charged by the checkout pipeline, not here.
func (r *Registry) PurchaseMembership(customerID string, expiry time.Time) (Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[customerID]
	if !ok {
		return Card{}, fmt.Errorf("%s: %w", customerID, ErrUnknownCustomer)
	}
	if c.Card != nil {
		return Card{}, fmt.Errorf("%s: %w", customerID, ErrAlreadyMember)
	}
	card := &Card{ID: fmt.Sprintf("DLSUCS-%08d", r.nextCard), Expiry: expiry}
	r.nextCard++
	c.Card = card
	return *card, nil
}

// Earn credits points against a customer's card and returns how many were
// added.
func (r *Registry) Earn(customerID string, amountCentavos int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, err := r.activeCard(customerID)
	if err != nil {
		return 0, err
	}
	return card.Earn(amountCentavos), nil
}

// Use debits points from a customer's card for a redemption.
func (r *Registry) Use(customerID string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, err := r.activeCard(customerID)
	if err != nil {
		return err
	}
	return card.Use(points)
}

// Refund returns clamp excess to a customer's card.
func (r *Registry) Refund(customerID string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[customerID]
	if !ok {
		return fmt.Errorf("%s: %w", customerID, ErrUnknownCustomer)
	}
	if c.Card == nil {
		return fmt.Errorf("%s: %w", customerID, ErrNotMember)
	}
	c.Card.Refund(points)
	return nil
}

// Balance returns a customer's current point balance.
func (r *Registry) Balance(customerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[customerID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", customerID, ErrUnknownCustomer)
	}
	if c.Card == nil {
		return 0, fmt.Errorf("%s: %w", customerID, ErrNotMember)
	}
	return c.Card.Points, nil
}

// Snapshot returns every customer in registration order, for persistence.
func (r *Registry) Snapshot() []Customer {
	return r.List()
}

// Restore replaces the registry contents and resumes both identifier
// sequences after the highest restored values.
func (r *Registry) Restore(customers []Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers = make([]*Customer, 0, len(customers))
	r.byID = make(map[string]*Customer, len(customers))
	nextCustomer, nextCard := 1, 1
	for i := range customers {
		c := customers[i].clone()
		r.customers = append(r.customers, &c)
		r.byID[c.ID] = &c
		var seq int
		if _, err := fmt.Sscanf(c.ID, "DLSUser-%d", &seq); err == nil && seq >= nextCustomer {
			nextCustomer = seq + 1
		}
		if c.Card != nil {
			if _, err := fmt.Sscanf(c.Card.ID, "DLSUCS-%d", &seq); err == nil && seq >= nextCard {
				nextCard = seq + 1
			}
		}
	}
	r.nextCustomer = nextCustomer
	r.nextCard = nextCard
}

// activeCard returns the customer's card after checking membership and
// expiry. Callers hold the registry lock.
func (r *Registry) activeCard(customerID string) (*Card, error) {
	c, ok := r.byID[customerID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", customerID, ErrUnknownCustomer)
	}
	if c.Card == nil {
		return nil, fmt.Errorf("%s: %w", customerID, ErrNotMember)
	}
	if c.Card.ExpiredAt(r.now()) {
		return nil, fmt.Errorf("%s: %w", c.Card.ID, ErrExpiredCard)
	}
	return c.Card, nil
}
