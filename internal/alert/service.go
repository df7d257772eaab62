// Package alert lets visitors subscribe to a target heating oil price and
// evaluates those subscriptions in the background.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/obs"
	"github.com/noah-isme/oilprice-ni/internal/postcode"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
	"github.com/noah-isme/oilprice-ni/internal/quote"
)

// Comparer produces the comparison an alert is checked against.
type Comparer interface {
	Compare(ctx context.Context, req quote.Request) (quote.Comparison, error)
}

// Enqueuer schedules background evaluation of an alert.
type Enqueuer interface {
	EnqueueEvaluate(ctx context.Context, id uuid.UUID) error
}

// Notifier tells the subscriber that their target price was reached.
type Notifier interface {
	Notify(ctx context.Context, a Alert, cheapest quote.SupplierQuote) error
}

// Price accepts either a JSON number or a decorated string such as "£350.00".
type Price float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*p = Price(num)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("target_price must be a number or string: %w", err)
	}
	v, err := pricing.ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = Price(v)
	return nil
}

// CreateRequest is the payload for POST /api/v1/alerts.
type CreateRequest struct {
	Email       string  `json:"email" validate:"required,email,max=254"`
	Postcode    string  `json:"postcode" validate:"required,max=16"`
	Volume      float64 `json:"volume" validate:"required,gt=0"`
	TargetPrice Price   `json:"target_price" validate:"required,gt=0"`
}

// Service creates and evaluates price alerts.
type Service struct {
	Store    Store
	Quotes   Comparer
	Engine   *pricing.Engine
	Enqueuer Enqueuer
	Notifier Notifier
	Validate *validator.Validate
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Create validates and stores a new alert, then schedules its first evaluation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Alert, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator().Struct(req); err != nil {
		obs.Inc(obs.AlertsCreatedTotal, "invalid")
		return Alert{}, validationError(err)
	}
	pc, err := postcode.Parse(req.Postcode)
	if err != nil {
		obs.Inc(obs.AlertsCreatedTotal, "invalid")
		return Alert{}, quote.PostcodeError(err)
	}
	if s.Engine != nil && !s.Engine.IsValidVolume(req.Volume) {
		obs.Inc(obs.AlertsCreatedTotal, "invalid")
		minVol, maxVol := s.Engine.VolumeBounds()
		return Alert{}, common.BadRequest("INVALID_VOLUME", "volume", fmt.Sprintf("volume must be between %g and %g litres", minVol, maxVol), nil)
	}

	created, err := s.Store.Create(ctx, Alert{
		Email:       req.Email,
		Postcode:    pc.String(),
		Volume:      req.Volume,
		TargetPrice: pricing.RoundPence(float64(req.TargetPrice)),
	})
	if errors.Is(err, ErrDuplicate) {
		obs.Inc(obs.AlertsCreatedTotal, "duplicate")
		return Alert{}, common.NewAppError("ALERT_EXISTS", "an alert for this email, postcode and volume already exists", http.StatusConflict, err)
	}
	if err != nil {
		obs.Inc(obs.AlertsCreatedTotal, "error")
		return Alert{}, err
	}
	obs.Inc(obs.AlertsCreatedTotal, "ok")

	if s.Enqueuer != nil {
		if err := s.Enqueuer.EnqueueEvaluate(ctx, created.ID); err != nil && !errors.Is(err, ErrAlreadyQueued) {
			s.Logger.Warn().Err(err).Str("alert_id", created.ID.String()).Msg("enqueue alert evaluation")
		}
	}
	return created, nil
}

// Evaluate checks one alert against the current comparison and notifies the
// subscriber the first time the cheapest price is at or below the target.
func (s *Service) Evaluate(ctx context.Context, id uuid.UUID) (bool, error) {
	a, err := s.Store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if a.TriggeredAt != nil {
		obs.Inc(obs.AlertEvaluationsTotal, "already_triggered")
		return false, nil
	}
	cmp, err := s.Quotes.Compare(ctx, quote.Request{Postcode: a.Postcode, Volume: a.Volume})
	if err != nil {
		obs.Inc(obs.AlertEvaluationsTotal, "error")
		return false, fmt.Errorf("compare for alert %s: %w", id, err)
	}
	if cmp.Cheapest == nil || cmp.Cheapest.Price > a.TargetPrice {
		obs.Inc(obs.AlertEvaluationsTotal, "pending")
		return false, nil
	}
	marked, err := s.Store.MarkTriggered(ctx, id, s.now())
	if err != nil {
		obs.Inc(obs.AlertEvaluationsTotal, "error")
		return false, err
	}
	if !marked {
		obs.Inc(obs.AlertEvaluationsTotal, "already_triggered")
		return false, nil
	}
	obs.Inc(obs.AlertEvaluationsTotal, "triggered")
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, a, *cmp.Cheapest); err != nil {
			s.Logger.Error().Err(err).Str("alert_id", id.String()).Msg("notify alert subscriber")
		}
	}
	return true, nil
}

// SweepResult counts what a sweep did with each pending alert.
type SweepResult struct {
	Enqueued      int
	AlreadyQueued int
}

// Sweep enqueues an evaluation for up to limit untriggered alerts.
func (s *Service) Sweep(ctx context.Context, limit int) (SweepResult, error) {
	var res SweepResult
	if s.Enqueuer == nil {
		return res, errors.New("alert: enqueuer not configured")
	}
	pending, err := s.Store.ListPending(ctx, limit)
	if err != nil {
		return res, err
	}
	for _, a := range pending {
		err := s.Enqueuer.EnqueueEvaluate(ctx, a.ID)
		switch {
		case errors.Is(err, ErrAlreadyQueued):
			res.AlreadyQueued++
		case err != nil:
			return res, fmt.Errorf("enqueue alert %s: %w", a.ID, err)
		default:
			res.Enqueued++
		}
	}
	return res, nil
}

func (s *Service) validator() *validator.Validate {
	if s.Validate != nil {
		return s.Validate
	}
	return defaultValidator
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.BadRequest("VALIDATION_ERROR", "", "invalid request", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonField(fe.Field())] = fe.Tag()
	}
	appErr := common.BadRequest("VALIDATION_ERROR", "", "invalid request", err)
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}

func jsonField(name string) string {
	switch name {
	case "TargetPrice":
		return "target_price"
	default:
		return strings.ToLower(name)
	}
}
