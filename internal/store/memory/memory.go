// Package memory is the in-memory persistence collaborator, used by tests
// and local development without Postgres.
package memory

import (
	"context"
	"sync"

	"github.com/BenitoJames/backend-tindahan/internal/checkout"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
)

// Store keeps every snapshot in process memory.
type Store struct {
	mu           sync.RWMutex
	inventory    []inventory.Entry
	customers    []loyalty.Customer
	sales        []promo.Sale
	transactions []checkout.Transaction
	salesLog     []string
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{}
}

// LoadInventory returns the last saved inventory snapshot.
func (s *Store) LoadInventory(context.Context) ([]inventory.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Entry, len(s.inventory))
	copy(out, s.inventory)
	return out, nil
}

// SaveInventory replaces the inventory snapshot.
func (s *Store) SaveInventory(_ context.Context, entries []inventory.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = make([]inventory.Entry, len(entries))
	copy(s.inventory, entries)
	return nil
}

// LoadCustomers returns the last saved customer snapshot.
func (s *Store) LoadCustomers(context.Context) ([]loyalty.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]loyalty.Customer, len(s.customers))
	for i, c := range s.customers {
		if c.Card != nil {
			card := *c.Card
			c.Card = &card
		}
		out[i] = c
	}
	return out, nil
}

// SaveCustomers replaces the customer snapshot.
func (s *Store) SaveCustomers(_ context.Context, customers []loyalty.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = make([]loyalty.Customer, len(customers))
	for i, c := range customers {
		if c.Card != nil {
			card := *c.Card
			c.Card = &card
		}
		s.customers[i] = c
	}
	return nil
}

// LoadSales returns the last saved sale snapshot.
func (s *Store) LoadSales(context.Context) ([]promo.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]promo.Sale, len(s.sales))
	copy(out, s.sales)
	return out, nil
}

// SaveSales replaces the sale snapshot.
func (s *Store) SaveSales(_ context.Context, sales []promo.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = make([]promo.Sale, len(sales))
	copy(s.sales, sales)
	return nil
}

// SaveTransaction appends a settled transaction record.
func (s *Store) SaveTransaction(_ context.Context, t *checkout.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, *t)
	return nil
}

// Transactions returns every persisted transaction, for tests.
func (s *Store) Transactions() []checkout.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]checkout.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// AppendSalesLog appends one summary line.
func (s *Store) AppendSalesLog(_ context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salesLog = append(s.salesLog, line)
	return nil
}

// SalesLog returns the appended summary lines, for tests.
func (s *Store) SalesLog() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.salesLog))
	copy(out, s.salesLog)
	return out
}
