package security

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func readingHandler(captured *string, readErr *error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		*captured = string(body)
		*readErr = err
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	var captured string
	var readErr error
	handler := BodyLimit{Max: 10}.Middleware(readingHandler(&captured, &readErr))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader("short")))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if captured != "short" || readErr != nil {
		t.Fatalf("unexpected body %q err %v", captured, readErr)
	}
}

func TestBodyLimitRejectsDeclaredLength(t *testing.T) {
	var captured string
	var readErr error
	handler := BodyLimit{Max: 4}.Middleware(readingHandler(&captured, &readErr))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader("too long")))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "PAYLOAD_TOO_LARGE") {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestBodyLimitCapsStreamedBody(t *testing.T) {
	var captured string
	var readErr error
	handler := BodyLimit{Max: 4}.Middleware(readingHandler(&captured, &readErr))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader("streamed body"))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("expected MaxBytesError, got %v", readErr)
	}
}
