package quote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/oilprice-ni/internal/common"
)

type envelope[T any] struct {
	Data  T                `json:"data"`
	Error common.ErrorBody `json:"error"`
}

func get[T any](t *testing.T, fn http.HandlerFunc, target string) (int, envelope[T]) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHandlerCompare(t *testing.T) {
	h := &Handler{Svc: newService(t, seedStore(), nil)}

	status, body := get[Comparison](t, h.Compare, "/api/v1/quotes?postcode=BT41+4AA&volume=900")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 900.0, body.Data.Volume)
	require.Equal(t, 900.0, body.Data.StandardVolume)
	require.Len(t, body.Data.Quotes, 2)

	status, body = get[Comparison](t, h.Compare, "/api/v1/quotes?postcode=BT41")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(DefaultVolume), body.Data.Volume)

	status, body = get[Comparison](t, h.Compare, "/api/v1/quotes?postcode=BT41&volume=lots")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_INPUT", body.Error.Code)

	status, body = get[Comparison](t, h.Compare, "/api/v1/quotes?postcode=BT41&volume=5000")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_VOLUME", body.Error.Code)
}

func TestHandlerProject(t *testing.T) {
	h := &Handler{Svc: newService(t, seedStore(), nil)}

	status, body := get[Projection](t, h.Project, "/api/v1/pricing/project?price=%C2%A3415.00&base_volume=500&volume=900")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "£896.40", body.Data.PriceDisplay)
	require.Equal(t, 896.4, body.Data.Price)
	require.Equal(t, "99.6 ppl", body.Data.PencePerLitre)
	require.True(t, body.Data.ValidVolume)
	require.Equal(t, 900.0, body.Data.StandardVolume)

	status, body = get[Projection](t, h.Project, "/api/v1/pricing/project?price=1,200&base_volume=1000&volume=3000")
	require.Equal(t, http.StatusOK, status)
	require.False(t, body.Data.ValidVolume, "projection itself does not enforce the volume bounds")
	require.Equal(t, "£4320.00", body.Data.PriceDisplay)

	status, body = get[Projection](t, h.Project, "/api/v1/pricing/project?price=abc&volume=900")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_FORMAT", body.Error.Code)
	require.Equal(t, map[string]any{"field": "price", "input": "abc"}, body.Error.Details)

	status, body = get[Projection](t, h.Project, "/api/v1/pricing/project?price=0&base_volume=500&volume=500")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestHandlerSavings(t *testing.T) {
	h := &Handler{Svc: newService(t, seedStore(), nil)}

	status, body := get[Savings](t, h.Savings, "/api/v1/pricing/savings?price=450&average=500")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 50.0, body.Data.Savings)
	require.Equal(t, "£50.00", body.Data.SavingsDisplay)
	require.InDelta(t, 10.0, body.Data.DiscountPercent, 1e-9)

	status, body = get[Savings](t, h.Savings, "/api/v1/pricing/savings?price=550&average=500&original=0")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0.0, body.Data.Savings)
	require.Equal(t, 0.0, body.Data.DiscountPercent)

	status, body = get[Savings](t, h.Savings, "/api/v1/pricing/savings?price=450")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_FORMAT", body.Error.Code)
}
