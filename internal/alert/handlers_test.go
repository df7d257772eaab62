package alert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func post(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestHandlerCreate(t *testing.T) {
	f := newFixture(t)
	h := &Handler{Svc: f.svc}

	rec, out := post(t, h, `{"email":"jo@example.com","postcode":"BT41 4AA","volume":500,"target_price":"£350.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := out["data"].(map[string]any)
	require.Equal(t, "BT41 4AA", data["postcode"])
	require.Equal(t, 350.0, data["target_price"])
	require.NotEmpty(t, data["id"])

	rec, out = post(t, h, `{"email":"jo@example.com","postcode":"BT41 4AA","volume":500,"target_price":350}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ALERT_EXISTS", out["error"].(map[string]any)["code"])
}

func TestHandlerCreateRejectsBadBodies(t *testing.T) {
	f := newFixture(t)
	h := &Handler{Svc: f.svc}

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty", ``, http.StatusBadRequest, "BAD_REQUEST"},
		{"malformed", `{"email":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", `{"email":"jo@example.com","colour":"red"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad price", `{"email":"jo@example.com","postcode":"BT41 4AA","volume":500,"target_price":"cheap"}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"missing email", `{"postcode":"BT41 4AA","volume":500,"target_price":350}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := post(t, h, tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, out["error"].(map[string]any)["code"])
		})
	}
}
