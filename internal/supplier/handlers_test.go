package supplier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

func newStore() *supplier.MemoryStore {
	return supplier.NewMemoryStore(
		supplier.Supplier{Name: "Lough Neagh Fuels", Slug: "lough-neagh-fuels", Areas: []string{"bt41", " BT42 "}, BasePrice: 290, BaseVolume: 500},
		supplier.Supplier{Name: "Antrim Oils", Slug: "antrim-oils", Areas: []string{"BT41"}, BasePrice: 300, BaseVolume: 500},
		supplier.Supplier{Name: "Belfast Heat", Slug: "belfast-heat", Areas: []string{"BT1", "BT9"}, BasePrice: 310, BaseVolume: 500},
	)
}

func TestMemoryStoreListByArea(t *testing.T) {
	store := newStore()
	rows, err := store.ListByArea(context.Background(), "bt41")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Antrim Oils", rows[0].Name)
	require.Equal(t, []string{"BT41", "BT42"}, rows[1].Areas)

	none, err := store.ListByArea(context.Background(), "BT80")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestMemoryStoreUpsertKeepsID(t *testing.T) {
	store := newStore()
	before, err := store.GetBySlug(context.Background(), "antrim-oils")
	require.NoError(t, err)
	after, err := store.Upsert(context.Background(), supplier.Supplier{Name: "Antrim Oils", Slug: "antrim-oils", Areas: []string{"BT41"}, BasePrice: 295, BaseVolume: 500})
	require.NoError(t, err)
	require.Equal(t, before.ID, after.ID)
	require.Equal(t, 295.0, after.BasePrice)
}

func TestHandlerList(t *testing.T) {
	h := &supplier.Handler{Store: newStore()}
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/suppliers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []supplier.Supplier `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	require.Equal(t, "antrim-oils", resp.Data[0].Slug)
}

func TestHandlerGet(t *testing.T) {
	h := &supplier.Handler{Store: newStore()}

	get := func(slug string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/suppliers/"+slug, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("slug", slug)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		return rec
	}

	rec := get("belfast-heat")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Belfast Heat")

	missing := get("nobody")
	require.Equal(t, http.StatusNotFound, missing.Code)
	require.Contains(t, missing.Body.String(), "NOT_FOUND")
}
