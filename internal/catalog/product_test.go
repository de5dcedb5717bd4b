package catalog

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewResolvesCategoryFromPrefix(t *testing.T) {
	cases := map[string]Category{
		"F-001": CategoryFood,
		"B-010": CategoryBeverage,
		"T-002": CategoryToiletries,
		"H-100": CategoryHousehold,
		"P-007": CategoryPharmacy,
		"G-042": CategoryGeneral,
	}
	for id, want := range cases {
		p, err := New(id, "Item", "Brand", "", 1500)
		require.NoError(t, err, id)
		require.Equal(t, want, p.Category)
		require.Equal(t, KindNonPerishable, p.Kind)
		require.False(t, p.Perishable())
	}
}

func TestNewRejectsBadIdentifiers(t *testing.T) {
	for _, id := range []string{"", "X-001", "F001", "F-", "f-001", "F-1a", "FB-001"} {
		_, err := New(id, "Item", "Brand", "", 1500)
		require.ErrorIs(t, err, ErrInvalidFormat, id)
	}
}

func TestNewRejectsNonPositivePrice(t *testing.T) {
	_, err := New("F-001", "Item", "Brand", "", 0)
	require.ErrorIs(t, err, ErrInvalidPrice)
	_, err = New("F-001", "Item", "Brand", "", -100)
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestNewPerishableCarriesExpiry(t *testing.T) {
	expiry := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	p, err := NewPerishable("F-003", "Milk", "Bear Brand", "1L", 9900, expiry)
	require.NoError(t, err)
	require.True(t, p.Perishable())
	require.Equal(t, expiry, p.Expiry)
}

func TestParseID(t *testing.T) {
	prefix, seq, err := ParseID("B-017")
	require.NoError(t, err)
	require.Equal(t, "B", prefix)
	require.Equal(t, 17, seq)

	_, _, err = ParseID("SALE-0001")
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestCompareIDsOrdersByPrefixThenNumericSuffix(t *testing.T) {
	ids := []string{"T-2", "F-10", "B-1", "F-2", "B-12"}
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })
	require.Equal(t, []string{"B-1", "B-12", "F-2", "F-10", "T-2"}, ids)
}

func TestCompareIDsNumericNotLexicographic(t *testing.T) {
	// F-10 must sort after F-2 even though "10" < "2" lexicographically.
	require.Equal(t, 1, CompareIDs("F-10", "F-2"))
	require.Equal(t, -1, CompareIDs("F-2", "F-10"))
	require.Equal(t, 0, CompareIDs("F-2", "F-02"))
}
