// Package postgres is the pgx-backed persistence collaborator. Snapshots are
// replaced wholesale inside a transaction; settled transactions and sales-log
// lines are append-only.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
	"github.com/BenitoJames/backend-tindahan/internal/checkout"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDuplicateTransaction is returned when a transaction identifier is
// persisted twice.
var ErrDuplicateTransaction = errors.New("postgres: transaction already persisted")

// Store implements the persistence collaborator on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the embedded schema migrations against the database URL.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// LoadInventory returns the saved inventory snapshot in saved order.
func (s *Store) LoadInventory(ctx context.Context) ([]inventory.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, brand, variant, price, category, kind, expiry, quantity
		FROM products
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []inventory.Entry
	for rows.Next() {
		var (
			p      catalog.Product
			expiry *time.Time
			qty    int
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Variant, &p.Price, &p.Category, &p.Kind, &expiry, &qty); err != nil {
			return nil, err
		}
		if expiry != nil {
			p.Expiry = *expiry
		}
		entries = append(entries, inventory.Entry{Product: p, Quantity: qty})
	}
	return entries, rows.Err()
}

// SaveInventory replaces the inventory snapshot.
func (s *Store) SaveInventory(ctx context.Context, entries []inventory.Entry) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
			return err
		}
		for i, e := range entries {
			var expiry *time.Time
			if e.Product.Perishable() {
				t := e.Product.Expiry
				expiry = &t
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO products (id, name, brand, variant, price, category, kind, expiry, quantity, position)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			`, e.Product.ID, e.Product.Name, e.Product.Brand, e.Product.Variant, e.Product.Price,
				e.Product.Category, e.Product.Kind, expiry, e.Quantity, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadCustomers returns the saved customer snapshot in saved order.
func (s *Store) LoadCustomers(ctx context.Context) ([]loyalty.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, card_id, card_points, card_expiry
		FROM customers
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []loyalty.Customer
	for rows.Next() {
		var (
			c          loyalty.Customer
			cardID     *string
			cardPoints *int
			cardExpiry *time.Time
		)
		if err := rows.Scan(&c.ID, &c.Name, &cardID, &cardPoints, &cardExpiry); err != nil {
			return nil, err
		}
		if cardID != nil {
			card := loyalty.Card{ID: *cardID}
			if cardPoints != nil {
				card.Points = *cardPoints
			}
			if cardExpiry != nil {
				card.Expiry = *cardExpiry
			}
			c.Card = &card
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// SaveCustomers replaces the customer snapshot.
func (s *Store) SaveCustomers(ctx context.Context, customers []loyalty.Customer) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM customers`); err != nil {
			return err
		}
		for i, c := range customers {
			var (
				cardID     *string
				cardPoints *int
				cardExpiry *time.Time
			)
			if c.Card != nil {
				cardID = &c.Card.ID
				cardPoints = &c.Card.Points
				cardExpiry = &c.Card.Expiry
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO customers (id, name, card_id, card_points, card_expiry, position)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, c.ID, c.Name, cardID, cardPoints, cardExpiry, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSales returns the saved sale snapshot in saved order.
func (s *Store) LoadSales(ctx context.Context) ([]promo.Sale, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, target, kind, value, start_at, end_at, active
		FROM sales
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []promo.Sale
	for rows.Next() {
		var sale promo.Sale
		if err := rows.Scan(&sale.ID, &sale.Name, &sale.Target, &sale.Kind, &sale.Value, &sale.Start, &sale.End, &sale.Active); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// SaveSales replaces the sale snapshot.
func (s *Store) SaveSales(ctx context.Context, sales []promo.Sale) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM sales`); err != nil {
			return err
		}
		for i, sale := range sales {
			_, err := tx.Exec(ctx, `
				INSERT INTO sales (id, name, target, kind, value, start_at, end_at, active, position)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			`, sale.ID, sale.Name, sale.Target, sale.Kind, sale.Value, sale.Start, sale.End, sale.Active, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveTransaction appends a settled transaction record.
func (s *Store) SaveTransaction(ctx context.Context, t *checkout.Transaction) error {
	lines, err := json.Marshal(t.Lines)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO transactions (
			id, customer_id, senior, lines,
			subtotal, senior_discount, vat, membership_fee,
			points_discount, points_redeemed, final_total,
			amount_paid, change, method, settled_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, t.ID, t.CustomerID, t.SeniorValidated, lines,
		t.Totals.Subtotal, t.Totals.SeniorDiscount, t.Totals.VAT, t.Totals.MembershipFee,
		t.PointsDiscount, t.PointsRedeemed, t.FinalTotal,
		t.AmountPaid, t.Change, string(t.Method), t.SettledAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%s: %w", t.ID, ErrDuplicateTransaction)
		}
		return err
	}
	return nil
}

// AppendSalesLog appends one CSV summary line.
func (s *Store) AppendSalesLog(ctx context.Context, line string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO sales_log (line) VALUES ($1)`, line)
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
