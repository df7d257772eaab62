package security

import (
	"net/http"

	"github.com/noah-isme/oilprice-ni/internal/common"
)

// BodyLimit caps request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects declared oversize bodies with 413 and wraps the rest in
// http.MaxBytesReader so handlers see *http.MaxBytesError on overflow.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
