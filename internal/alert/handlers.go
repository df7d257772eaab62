package alert

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
)

// Handler exposes alert subscription over HTTP.
type Handler struct {
	Svc *Service
}

// Create handles POST /api/v1/alerts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		common.WriteError(w, decodeError(err))
		return
	}
	created, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, created)
}

func decodeError(err error) error {
	var fmtErr *pricing.FormatError
	if errors.As(err, &fmtErr) {
		appErr := common.BadRequest("INVALID_FORMAT", "target_price", "target_price is not a recognisable price", err)
		appErr.Details = map[string]string{"field": "target_price", "input": fmtErr.Input}
		return appErr
	}
	if errors.Is(err, io.EOF) {
		return common.BadRequest("BAD_REQUEST", "", "request body required", err)
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return common.NewAppError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge, err)
	}
	return common.BadRequest("BAD_REQUEST", "", "invalid JSON payload", err)
}
