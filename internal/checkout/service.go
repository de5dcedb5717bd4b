package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BenitoJames/backend-tindahan/internal/events"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/obs"
	"github.com/BenitoJames/backend-tindahan/internal/payment"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
)

// ErrUnknownSession is returned when a session identifier is not open.
var ErrUnknownSession = errors.New("checkout: unknown session")

// Store is the slice of the persistence collaborator the service needs.
// Transactions are persisted only after successful settlement.
type Store interface {
	SaveTransaction(ctx context.Context, t *Transaction) error
}

// Options tunes the checkout pipeline.
type Options struct {
	Rates Rates
	// MembershipFee is charged when a card is purchased mid-checkout.
	MembershipFee Money
	// PromoPriceAtAdd snapshots the promo-discounted unit price when a line
	// is added; when off, lines carry the raw price.
	PromoPriceAtAdd bool
	// MembershipValidity is how long a newly purchased card lasts.
	MembershipValidity time.Duration
}

// DefaultOptions returns the store's standard tuning.
func DefaultOptions() Options {
	return Options{
		Rates:              DefaultRates(),
		MembershipFee:      loyalty.MembershipFee,
		PromoPriceAtAdd:    true,
		MembershipValidity: 365 * 24 * time.Hour,
	}
}

type session struct {
	txn               *Transaction
	customerID        string
	seniorValidated   bool
	concessionID      string
	pendingMembership bool
	reservations      map[string][]*inventory.Reservation
}

// Service runs checkout sessions: one register, one session per transaction.
// Sessions live in memory; only settled transactions reach the store.
type Service struct {
	ledger    *inventory.Ledger
	sales     *promo.Catalog
	customers *loyalty.Registry
	store     Store
	bus       *events.Bus
	log       zerolog.Logger
	now       func() time.Time
	opts      Options

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService wires the checkout pipeline to its collaborators.
func NewService(ledger *inventory.Ledger, sales *promo.Catalog, customers *loyalty.Registry, store Store, bus *events.Bus, log zerolog.Logger, opts Options) *Service {
	return &Service{
		ledger:    ledger,
		sales:     sales,
		customers: customers,
		store:     store,
		bus:       bus,
		log:       log,
		now:       time.Now,
		opts:      opts,
		sessions:  make(map[string]*session),
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start opens a checkout session, optionally attached to a registered
// customer, and returns the session identifier.
func (s *Service) Start(customerID string) (string, error) {
	var name string
	if customerID != "" {
		c, err := s.customers.Get(customerID)
		if err != nil {
			return "", err
		}
		name = c.Name
	}
	id := uuid.NewString()
	txn := NewTransaction(id, s.opts.Rates)
	txn.CustomerID = customerID
	txn.CustomerName = name

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{
		txn:          txn,
		customerID:   customerID,
		reservations: make(map[string][]*inventory.Reservation),
	}
	return id, nil
}

// Transaction returns a copy of the session's transaction.
func (s *Service) Transaction(sessionID string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Transaction{}, fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	return *sess.txn, nil
}

// AddItem reserves stock and appends a cart line. The unit price is
// snapshotted at add time, promo-discounted when that policy is on. Adding
// the same product again reserves more units onto the existing line at its
// original snapshot price.
func (s *Service) AddItem(sessionID, productID string, qty int) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Line{}, fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	if sess.txn.State != StateOpen {
		return Line{}, fmt.Errorf("add item in %s: %w", sess.txn.State, ErrInvalidState)
	}

	entry, err := s.ledger.Get(productID)
	if err != nil {
		return Line{}, err
	}
	r, err := s.ledger.Reserve(productID, qty)
	if err != nil {
		return Line{}, err
	}
	obs.StockReservedTotal.Add(float64(qty))

	for i := range sess.txn.Lines {
		if sess.txn.Lines[i].ProductID == productID {
			sess.txn.Lines[i].Quantity += qty
			sess.reservations[productID] = append(sess.reservations[productID], r)
			return sess.txn.Lines[i], nil
		}
	}

	unitPrice := entry.Product.Price
	saleID := ""
	if s.opts.PromoPriceAtAdd {
		if best, err := s.sales.ResolveBestSale(entry.Product, s.now()); err == nil {
			unitPrice -= best.DiscountOn(entry.Product.Price)
			saleID = best.ID
		}
	}
	line := Line{
		ProductID: productID,
		Name:      entry.Product.Name,
		UnitPrice: unitPrice,
		Quantity:  qty,
		SaleID:    saleID,
	}
	if err := sess.txn.AddLine(line); err != nil {
		if relErr := s.ledger.Release(r); relErr != nil {
			s.log.Error().Err(relErr).Str("product_id", productID).Msg("release after rejected line failed")
		}
		return Line{}, err
	}
	sess.reservations[productID] = append(sess.reservations[productID], r)
	return line, nil
}

// RemoveItem drops a product's line and releases every unit it reserved.
func (s *Service) RemoveItem(sessionID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	if _, err := sess.txn.RemoveLine(productID); err != nil {
		return err
	}
	for _, r := range sess.reservations[productID] {
		if err := s.ledger.Release(r); err != nil {
			s.log.Error().Err(err).Str("product_id", productID).Msg("release on line removal failed")
		}
	}
	delete(sess.reservations, productID)
	return nil
}

// ValidateConcession checks a senior/PWD identifier and marks the session
// eligible for the concession discount. Eligibility lasts this session only.
func (s *Service) ValidateConcession(sessionID, concessionID string) error {
	if err := loyalty.ValidateConcessionID(concessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	sess.seniorValidated = true
	sess.concessionID = concessionID
	return nil
}

// PurchaseMembership queues a card purchase for the session's customer. The
// fee joins the final total; the card itself is issued at settlement.
func (s *Service) PurchaseMembership(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	if sess.customerID == "" {
		return fmt.Errorf("walk-in session: %w", loyalty.ErrUnknownCustomer)
	}
	c, err := s.customers.Get(sess.customerID)
	if err != nil {
		return err
	}
	if c.Card != nil {
		return fmt.Errorf("%s: %w", sess.customerID, loyalty.ErrAlreadyMember)
	}
	if err := sess.txn.AddMembershipFee(s.opts.MembershipFee); err != nil {
		return err
	}
	sess.pendingMembership = true
	return nil
}

// ComputeTotals runs the discount pipeline and freezes the cart.
func (s *Service) ComputeTotals(sessionID string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Transaction{}, fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	if err := sess.txn.ComputeTotals(sess.seniorValidated); err != nil {
		return Transaction{}, err
	}
	return *sess.txn, nil
}

// RedeemPoints debits the customer's card, clamps to what the final total can
// absorb and refunds the excess. A failed redemption leaves both the balance
// and the totals untouched.
func (s *Service) RedeemPoints(sessionID string, requested int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	if sess.txn.State != StateTotalsComputed {
		return 0, fmt.Errorf("redeem in %s: %w", sess.txn.State, ErrInvalidState)
	}
	if sess.customerID == "" {
		return 0, fmt.Errorf("walk-in session: %w", loyalty.ErrNotMember)
	}
	if requested <= 0 {
		return 0, fmt.Errorf("points %d: %w", requested, loyalty.ErrInsufficientPoints)
	}

	if err := s.customers.Use(sess.customerID, requested); err != nil {
		return 0, err
	}
	redeemed := sess.txn.RedeemablePoints(requested)
	if excess := requested - redeemed; excess > 0 {
		if err := s.customers.Refund(sess.customerID, excess); err != nil {
			s.log.Error().Err(err).Str("customer_id", sess.customerID).Msg("refund of clamp excess failed")
		}
	}
	if err := sess.txn.ApplyRedemption(redeemed); err != nil {
		if refundErr := s.customers.Refund(sess.customerID, redeemed); refundErr != nil {
			s.log.Error().Err(refundErr).Str("customer_id", sess.customerID).Msg("refund after rejected redemption failed")
		}
		return 0, err
	}
	obs.PointsRedeemedTotal.Add(float64(redeemed))
	return redeemed, nil
}

// Settle accepts payment, finalizes the transaction, consumes reservations,
// issues a queued membership card, credits earned points, persists the record
// and emits the settled event.
func (s *Service) Settle(ctx context.Context, sessionID string, method Method, amountPaid Money, card *payment.Card) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Transaction{}, fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	now := s.now()
	if method == MethodCard {
		if card == nil {
			return Transaction{}, fmt.Errorf("card details required: %w", payment.ErrInvalidFormat)
		}
		if _, err := card.Validate(now); err != nil {
			return Transaction{}, err
		}
	}
	if err := sess.txn.Settle(amountPaid, method, now); err != nil {
		return Transaction{}, err
	}

	for _, rs := range sess.reservations {
		for _, r := range rs {
			if err := s.ledger.Consume(r); err != nil {
				s.log.Error().Err(err).Str("transaction_id", sess.txn.ID).Msg("consume reservation failed")
			}
		}
	}

	if sess.pendingMembership {
		issued, err := s.customers.PurchaseMembership(sess.customerID, now.Add(s.opts.MembershipValidity))
		if err != nil {
			s.log.Error().Err(err).Str("customer_id", sess.customerID).Msg("membership issue at settlement failed")
		} else {
			s.log.Info().Str("card_id", issued.ID).Str("customer_id", sess.customerID).Msg("membership card issued")
		}
	}

	earned := 0
	if sess.customerID != "" {
		n, err := s.customers.Earn(sess.customerID, sess.txn.EligibleForEarning())
		if err == nil {
			earned = n
		} else if !errors.Is(err, loyalty.ErrNotMember) {
			s.log.Warn().Err(err).Str("customer_id", sess.customerID).Msg("point earning skipped")
		}
	}

	if err := s.store.SaveTransaction(ctx, sess.txn); err != nil {
		s.log.Error().Err(err).Str("transaction_id", sess.txn.ID).Msg("persist settled transaction failed")
	}
	obs.SettlementsTotal.WithLabelValues(string(method)).Inc()

	s.bus.Emit(ctx, events.TopicTransactionSettled, events.SettledPayload{
		TransactionID: sess.txn.ID,
		CustomerID:    sess.customerID,
		FinalTotal:    sess.txn.FinalTotal,
		Method:        string(method),
		PointsEarned:  earned,
		SummaryLine:   sess.txn.SummaryLine(),
	})

	done := *sess.txn
	delete(s.sessions, sessionID)
	return done, nil
}

// Abandon discards the session and releases every outstanding reservation
// exactly once. The transaction is never persisted.
func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	if err := sess.txn.Abandon(); err != nil {
		return err
	}
	released := 0
	for productID, rs := range sess.reservations {
		for _, r := range rs {
			if err := s.ledger.Release(r); err != nil {
				s.log.Error().Err(err).Str("product_id", productID).Msg("release on abandon failed")
				continue
			}
			released++
		}
	}
	obs.SessionsAbandonedTotal.Inc()
	s.bus.Emit(ctx, events.TopicTransactionAbandoned, events.AbandonedPayload{
		TransactionID: sess.txn.ID,
		LinesReleased: released,
	})
	delete(s.sessions, sessionID)
	return nil
}
