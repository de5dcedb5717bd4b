package promo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(now time.Time) (*chi.Mux, *Catalog) {
	c := NewCatalog()
	h := &Handler{Catalog: c, Now: func() time.Time { return now }}
	r := chi.NewRouter()
	h.Routes(r)
	return r, c
}

func TestCreateSaleEndpoint(t *testing.T) {
	r, c := newTestRouter(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	body := `{"name":"March Madness","target":"ALL-B","kind":"percent","value":1500,"start":"2026-03-01T00:00:00Z","end":"2026-03-31T23:59:59Z"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data Sale `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "SALE-0001", resp.Data.ID)

	_, err := c.Get("SALE-0001")
	require.NoError(t, err)
}

func TestCreateSaleRejectsBadDiscount(t *testing.T) {
	r, _ := newTestRouter(time.Now())

	body := `{"name":"Too Good","target":"F-001","kind":"percent","value":20000,"start":"2026-03-01T00:00:00Z","end":"2026-03-31T00:00:00Z"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListActiveFilter(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	r, c := newTestRouter(now)

	_, err := c.Add(Draft{Name: "Running", Target: "F-001", Kind: KindFixed, Value: 100,
		Start: now.AddDate(0, 0, -1), End: now.AddDate(0, 0, 1)})
	require.NoError(t, err)
	_, err = c.Add(Draft{Name: "Finished", Target: "B-001", Kind: KindFixed, Value: 100,
		Start: now.AddDate(0, -1, 0), End: now.AddDate(0, 0, -2)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales?active=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Running")
	require.NotContains(t, rec.Body.String(), "Finished")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales", nil))
	require.Contains(t, rec.Body.String(), "Finished")
}

func TestEndAndDeleteSale(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	r, c := newTestRouter(now)

	sale, err := c.Add(Draft{Name: "Short", Target: "F-001", Kind: KindFixed, Value: 100,
		Start: now.AddDate(0, 0, -1), End: now.AddDate(0, 0, 5)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/"+sale.ID+"/end", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := c.Get(sale.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sales/"+sale.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/"+sale.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSweepEndpoint(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	r, c := newTestRouter(now)

	_, err := c.Add(Draft{Name: "Old", Target: "F-001", Kind: KindFixed, Value: 100,
		Start: now.AddDate(0, -2, 0), End: now.AddDate(0, -1, 0)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/sweep", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"removed":1`)
	require.Empty(t, c.List())
}
