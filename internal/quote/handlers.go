package quote

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
)

// DefaultVolume is used when a comparison request omits the volume.
const DefaultVolume = 500

// Handler exposes comparison and calculator endpoints.
type Handler struct {
	Svc *Service
}

// Compare handles GET /api/v1/quotes?postcode=&volume=.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	q := r.URL.Query()
	volume, err := floatParam(q.Get("volume"), DefaultVolume, "volume")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	cmp, err := h.Svc.Compare(r.Context(), Request{Postcode: q.Get("postcode"), Volume: volume})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, cmp)
}

// Projection is the calculator response for a single price reference.
type Projection struct {
	Price          float64 `json:"price"`
	PriceDisplay   string  `json:"price_display"`
	PencePerLitre  string  `json:"pence_per_litre"`
	Volume         float64 `json:"volume"`
	ValidVolume    bool    `json:"valid_volume"`
	StandardVolume float64 `json:"standard_volume"`
}

// Project handles GET /api/v1/pricing/project?price=&base_volume=&volume=.
// price accepts decorated strings such as "£1,234.50".
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	engine := h.Svc.Engine
	q := r.URL.Query()
	basePrice, err := pricing.ParsePrice(q.Get("price"))
	if err != nil {
		common.WriteError(w, PricingError("price", err))
		return
	}
	baseVolume, err := floatParam(q.Get("base_volume"), DefaultVolume, "base_volume")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	volume, err := floatParam(q.Get("volume"), baseVolume, "volume")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	price, err := engine.ProjectPrice(basePrice, baseVolume, volume)
	if err != nil {
		common.WriteError(w, PricingError("price", err))
		return
	}
	ppl, err := pricing.FormatPricePerLitre(price, volume)
	if err != nil {
		common.WriteError(w, PricingError("volume", err))
		return
	}
	common.Data(w, http.StatusOK, Projection{
		Price:          pricing.RoundPence(price),
		PriceDisplay:   pricing.FormatPrice(price),
		PencePerLitre:  ppl,
		Volume:         volume,
		ValidVolume:    engine.IsValidVolume(volume),
		StandardVolume: engine.ClosestStandardVolume(volume),
	})
}

// Savings is the promotional savings summary for a price against the market.
type Savings struct {
	Savings         float64 `json:"savings"`
	SavingsDisplay  string  `json:"savings_display"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Savings handles GET /api/v1/pricing/savings?price=&average=&original=.
// original defaults to average when omitted.
func (h *Handler) Savings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	price, err := pricing.ParsePrice(q.Get("price"))
	if err != nil {
		common.WriteError(w, PricingError("price", err))
		return
	}
	average, err := pricing.ParsePrice(q.Get("average"))
	if err != nil {
		common.WriteError(w, PricingError("average", err))
		return
	}
	original := average
	if raw := strings.TrimSpace(q.Get("original")); raw != "" {
		original, err = pricing.ParsePrice(raw)
		if err != nil {
			common.WriteError(w, PricingError("original", err))
			return
		}
	}
	savings := pricing.CalculateSavings(price, average)
	common.Data(w, http.StatusOK, Savings{
		Savings:         pricing.RoundPence(savings),
		SavingsDisplay:  pricing.FormatPrice(savings),
		DiscountPercent: pricing.CalculateDiscountPercentage(original, price),
	})
}

func floatParam(raw string, fallback float64, field string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, common.BadRequest("INVALID_INPUT", field, field+" must be a number", err)
	}
	return v, nil
}
