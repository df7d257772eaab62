package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewHTTPMetrics("oilprice", []float64{10, 1}, registry)

	r := chi.NewRouter()
	r.Use(HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/suppliers/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/suppliers/antrim-oils", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/suppliers/{slug}", "204"))
	require.Equal(t, 1.0, total)
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewHTTPMetrics("oilprice", nil, registry)
	second := NewHTTPMetrics("oilprice", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "debug")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/quotes", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes?postcode=BT1", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http_request", line["message"])
	require.Equal(t, "/api/v1/quotes", line["route"])
	require.Equal(t, float64(http.StatusTeapot), line["status"])
	require.Equal(t, float64(len("short and stout")), line["bytes"])
	require.Equal(t, "198.51.100.7", line["client_ip"])
	require.NotEmpty(t, line["request_id"])
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, ParseBucketsCSV(" "))
	require.Equal(t, []float64{5, 50}, ParseBucketsCSV("5, x, -1, 50"))
}

func TestSQLOperation(t *testing.T) {
	require.Equal(t, "SELECT", sqlOperation("  select id from suppliers"))
	require.Equal(t, "query", sqlOperation(""))
	require.Equal(t, "SELECT 1", truncateSQL("SELECT\n\t1"))
}
