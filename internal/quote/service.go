// Package quote compares projected heating oil prices across the suppliers
// that deliver to a postcode.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/obs"
	"github.com/noah-isme/oilprice-ni/internal/postcode"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

// Request is a comparison for one postcode and delivery volume in litres.
type Request struct {
	Postcode string
	Volume   float64
}

// SupplierQuote is one supplier's projected price within a comparison.
type SupplierQuote struct {
	Supplier        string    `json:"supplier"`
	Slug            string    `json:"slug"`
	Phone           string    `json:"phone,omitempty"`
	Website         string    `json:"website,omitempty"`
	Price           float64   `json:"price"`
	PriceDisplay    string    `json:"price_display"`
	PencePerLitre   string    `json:"pence_per_litre"`
	Savings         float64   `json:"savings"`
	SavingsDisplay  string    `json:"savings_display"`
	DiscountPercent float64   `json:"discount_percent"`
	Cheapest        bool      `json:"cheapest"`
	PriceUpdatedAt  time.Time `json:"price_updated_at"`
}

// Comparison ranks supplier quotes cheapest first.
type Comparison struct {
	Postcode       string          `json:"postcode"`
	Area           string          `json:"area"`
	Volume         float64         `json:"volume"`
	StandardVolume float64         `json:"standard_volume"`
	Quotes         []SupplierQuote `json:"quotes"`
	AveragePrice   float64         `json:"average_price"`
	AverageDisplay string          `json:"average_display"`
	Cheapest       *SupplierQuote  `json:"cheapest,omitempty"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Service builds comparisons from supplier price references.
type Service struct {
	Engine    *pricing.Engine
	Suppliers supplier.Store
	Cache     *Cache
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Compare projects every supplier covering req.Postcode to req.Volume.
func (s *Service) Compare(ctx context.Context, req Request) (Comparison, error) {
	if s.Engine == nil || s.Suppliers == nil {
		return Comparison{}, errors.New("quote: service not configured")
	}
	pc, err := postcode.Parse(req.Postcode)
	if err != nil {
		obs.Inc(obs.QuoteRequestsTotal, "invalid")
		return Comparison{}, PostcodeError(err)
	}
	if !s.Engine.IsValidVolume(req.Volume) {
		obs.Inc(obs.QuoteRequestsTotal, "invalid")
		minVol, maxVol := s.Engine.VolumeBounds()
		appErr := common.BadRequest("INVALID_VOLUME", "volume", fmt.Sprintf("volume must be between %g and %g litres", minVol, maxVol), nil)
		appErr.Details = map[string]any{"field": "volume", "min": minVol, "max": maxVol}
		return Comparison{}, appErr
	}

	key := Key(pc.Outward, req.Volume)
	cached, ok, err := s.Cache.Get(ctx, key)
	switch {
	case err != nil:
		obs.Inc(obs.QuoteCacheTotal, "error")
		s.Logger.Warn().Err(err).Str("key", key).Msg("quote cache read failed")
	case ok:
		obs.Inc(obs.QuoteCacheTotal, "hit")
		obs.Inc(obs.QuoteRequestsTotal, "ok")
		cached.Postcode = pc.String()
		return cached, nil
	default:
		obs.Inc(obs.QuoteCacheTotal, "miss")
	}

	suppliers, err := s.Suppliers.ListByArea(ctx, pc.Outward)
	if err != nil {
		obs.Inc(obs.QuoteRequestsTotal, "error")
		return Comparison{}, fmt.Errorf("load suppliers for %s: %w", pc.Outward, err)
	}
	cmp := s.build(pc, req.Volume, suppliers)
	if err := s.Cache.Set(ctx, key, cmp); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("quote cache write failed")
	}
	obs.Inc(obs.QuoteRequestsTotal, "ok")
	return cmp, nil
}

func (s *Service) build(pc postcode.Postcode, volume float64, suppliers []supplier.Supplier) Comparison {
	type projected struct {
		sup   supplier.Supplier
		price float64
	}
	rows := make([]projected, 0, len(suppliers))
	for _, sup := range suppliers {
		price, err := s.Engine.ProjectPrice(sup.BasePrice, sup.BaseVolume, volume)
		if err != nil {
			if obs.QuoteSuppliersSkipped != nil {
				obs.QuoteSuppliersSkipped.Inc()
			}
			s.Logger.Warn().Err(err).Str("supplier", sup.Slug).Msg("skipping supplier with invalid price reference")
			continue
		}
		rows = append(rows, projected{sup: sup, price: price})
	}
	slices.SortStableFunc(rows, func(a, b projected) int {
		if a.price != b.price {
			if a.price < b.price {
				return -1
			}
			return 1
		}
		return strings.Compare(a.sup.Name, b.sup.Name)
	})

	cmp := Comparison{
		Postcode:       pc.String(),
		Area:           pc.Outward,
		Volume:         volume,
		StandardVolume: s.Engine.ClosestStandardVolume(volume),
		Quotes:         make([]SupplierQuote, 0, len(rows)),
		GeneratedAt:    s.now(),
	}
	if len(rows) == 0 {
		return cmp
	}

	var sum float64
	for _, row := range rows {
		sum += row.price
	}
	average := sum / float64(len(rows))
	highest := rows[len(rows)-1].price

	for i, row := range rows {
		// volume is already known to be positive, so the ppl error cannot occur.
		ppl, _ := pricing.FormatPricePerLitre(row.price, volume)
		savings := pricing.CalculateSavings(row.price, average)
		cmp.Quotes = append(cmp.Quotes, SupplierQuote{
			Supplier:        row.sup.Name,
			Slug:            row.sup.Slug,
			Phone:           row.sup.Phone,
			Website:         row.sup.Website,
			Price:           pricing.RoundPence(row.price),
			PriceDisplay:    pricing.FormatPrice(row.price),
			PencePerLitre:   ppl,
			Savings:         pricing.RoundPence(savings),
			SavingsDisplay:  pricing.FormatPrice(savings),
			DiscountPercent: pricing.CalculateDiscountPercentage(highest, row.price),
			Cheapest:        i == 0,
			PriceUpdatedAt:  row.sup.UpdatedAt,
		})
	}
	cmp.AveragePrice = pricing.RoundPence(average)
	cmp.AverageDisplay = pricing.FormatPrice(average)
	cheapest := cmp.Quotes[0]
	cmp.Cheapest = &cheapest
	return cmp
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// PostcodeError maps postcode.Parse failures onto API errors.
func PostcodeError(err error) error {
	if errors.Is(err, postcode.ErrOutsideCoverage) {
		return common.NewAppError("OUTSIDE_COVERAGE", "we only compare prices for Northern Ireland (BT) postcodes", http.StatusUnprocessableEntity, err)
	}
	return common.BadRequest("INVALID_POSTCODE", "postcode", "postcode is not valid", err)
}

// PricingError maps pricing failures onto API errors for field.
func PricingError(field string, err error) error {
	var fmtErr *pricing.FormatError
	switch {
	case errors.As(err, &fmtErr):
		appErr := common.BadRequest("INVALID_FORMAT", field, field+" is not a valid price", err)
		appErr.Details = map[string]any{"field": field, "input": fmtErr.Input}
		return appErr
	case errors.Is(err, pricing.ErrInvalidInput):
		return common.BadRequest("INVALID_INPUT", field, err.Error(), err)
	default:
		return err
	}
}
