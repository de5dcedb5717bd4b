package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFormat is returned when a product identifier does not match the
// <CategoryPrefix>-<sequence> shape.
var ErrInvalidFormat = errors.New("catalog: invalid product identifier")

// ErrInvalidPrice is returned when a product is constructed with a price below
// one centavo.
var ErrInvalidPrice = errors.New("catalog: invalid product price")

// Category is a product family derived from the identifier prefix.
type Category string

const (
	CategoryFood       Category = "Food"
	CategoryBeverage   Category = "Beverage"
	CategoryToiletries Category = "Toiletries"
	CategoryHousehold  Category = "Household"
	CategoryPharmacy   Category = "Pharmacy"
	CategoryGeneral    Category = "General"
)

var categoryByPrefix = map[string]Category{
	"F": CategoryFood,
	"B": CategoryBeverage,
	"T": CategoryToiletries,
	"H": CategoryHousehold,
	"P": CategoryPharmacy,
	"G": CategoryGeneral,
}

// Kind distinguishes perishable goods from shelf-stable goods. It is resolved
// once at construction and never re-derived from the identifier.
type Kind string

const (
	KindPerishable    Kind = "perishable"
	KindNonPerishable Kind = "non_perishable"
)

var productIDPattern = regexp.MustCompile(`^([FBTHPG])-(\d+)$`)

// Product is an immutable catalog entry. Quantity on hand is owned by the
// stock ledger, not the product itself.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Brand    string    `json:"brand"`
	Variant  string    `json:"variant,omitempty"`
	Price    int64     `json:"price_centavos"`
	Category Category  `json:"category"`
	Kind     Kind      `json:"kind"`
	Expiry   time.Time `json:"expiry,omitempty"`
}

// New constructs a non-perishable product, deriving the category from the
// identifier prefix.
func New(id, name, brand, variant string, price int64) (Product, error) {
	category, err := categoryOf(id)
	if err != nil {
		return Product{}, err
	}
	if price < 1 {
		return Product{}, fmt.Errorf("price %d: %w", price, ErrInvalidPrice)
	}
	return Product{
		ID:       id,
		Name:     name,
		Brand:    brand,
		Variant:  variant,
		Price:    price,
		Category: category,
		Kind:     KindNonPerishable,
	}, nil
}

// NewPerishable constructs a perishable product carrying an expiration date.
func NewPerishable(id, name, brand, variant string, price int64, expiry time.Time) (Product, error) {
	p, err := New(id, name, brand, variant, price)
	if err != nil {
		return Product{}, err
	}
	p.Kind = KindPerishable
	p.Expiry = expiry
	return p, nil
}

// Perishable reports whether the product carries an expiration date.
func (p Product) Perishable() bool {
	return p.Kind == KindPerishable
}

// CategoryFromPrefix maps a single-letter prefix to its category.
func CategoryFromPrefix(prefix string) (Category, bool) {
	c, ok := categoryByPrefix[strings.ToUpper(strings.TrimSpace(prefix))]
	return c, ok
}

func categoryOf(id string) (Category, error) {
	prefix, _, err := ParseID(id)
	if err != nil {
		return "", err
	}
	category, ok := categoryByPrefix[prefix]
	if !ok {
		return "", fmt.Errorf("prefix %q: %w", prefix, ErrInvalidFormat)
	}
	return category, nil
}

// ParseID splits a product identifier into its category prefix and numeric
// sequence.
func ParseID(id string) (prefix string, seq int, err error) {
	match := productIDPattern.FindStringSubmatch(strings.TrimSpace(id))
	if match == nil {
		return "", 0, fmt.Errorf("%q: %w", id, ErrInvalidFormat)
	}
	seq, err = strconv.Atoi(match[2])
	if err != nil {
		return "", 0, fmt.Errorf("%q: %w", id, ErrInvalidFormat)
	}
	return match[1], seq, nil
}

// CompareIDs orders product identifiers by category prefix then numeric
// suffix, giving the stable ordering used by inventory reports. Identifiers
// that do not parse sort after valid ones, by raw string.
func CompareIDs(a, b string) int {
	ap, as, aerr := ParseID(a)
	bp, bs, berr := ParseID(b)
	switch {
	case aerr == nil && berr != nil:
		return -1
	case aerr != nil && berr == nil:
		return 1
	case aerr != nil && berr != nil:
		return strings.Compare(a, b)
	}
	if ap != bp {
		return strings.Compare(ap, bp)
	}
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
