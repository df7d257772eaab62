package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/oilprice-ni/internal/lock"
)

// Task type names registered on the asynq mux.
const (
	TypeEvaluate = "alert:evaluate"
	TypeSweep    = "alert:sweep"
)

const sweepLockKey = "lock:alert:sweep"

// DefaultDedupWindow bounds how long an evaluation blocks another one for the
// same alert. Archived tasks stop blocking once it lapses.
const DefaultDedupWindow = 15 * time.Minute

// ErrAlreadyQueued is returned when an evaluation for the alert is still
// inside its dedup window.
var ErrAlreadyQueued = errors.New("alert: evaluation already queued")

type evaluatePayload struct {
	AlertID uuid.UUID `json:"alert_id"`
}

// NewEvaluateTask builds the task that evaluates a single alert.
func NewEvaluateTask(id uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(evaluatePayload{AlertID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEvaluate, payload), nil
}

// NewSweepTask builds the periodic task that re-queues every pending alert.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSweep, nil)
}

// TaskEnqueuer submits alert tasks through an asynq client.
type TaskEnqueuer struct {
	Client      *asynq.Client
	Queue       string
	MaxRetry    int
	DedupWindow time.Duration
}

// EnqueueEvaluate implements Enqueuer. It returns ErrAlreadyQueued while an
// evaluation for the same alert is inside the dedup window.
func (e TaskEnqueuer) EnqueueEvaluate(ctx context.Context, id uuid.UUID) error {
	if e.Client == nil {
		return errors.New("alert: asynq client not configured")
	}
	task, err := NewEvaluateTask(id)
	if err != nil {
		return err
	}
	window := e.DedupWindow
	if window <= 0 {
		window = DefaultDedupWindow
	}
	opts := []asynq.Option{asynq.Unique(window)}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	_, err = e.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return ErrAlreadyQueued
	}
	return err
}

// Locker is satisfied by lock.Locker.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Worker handles alert tasks on the asynq server.
type Worker struct {
	Svc        *Service
	Locker     Locker
	LockTTL    time.Duration
	SweepLimit int
	Logger     zerolog.Logger
}

// Register mounts the alert handlers on mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEvaluate, w.HandleEvaluate)
	mux.HandleFunc(TypeSweep, w.HandleSweep)
}

// HandleEvaluate processes TypeEvaluate tasks.
func (w *Worker) HandleEvaluate(ctx context.Context, t *asynq.Task) error {
	var p evaluatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.AlertID == uuid.Nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeEvaluate, err, asynq.SkipRetry)
	}
	triggered, err := w.Svc.Evaluate(ctx, p.AlertID)
	if errors.Is(err, ErrNotFound) {
		w.Logger.Warn().Str("alert_id", p.AlertID.String()).Msg("alert vanished before evaluation")
		return nil
	}
	if err != nil {
		return err
	}
	w.Logger.Debug().Str("alert_id", p.AlertID.String()).Bool("triggered", triggered).Msg("alert evaluated")
	return nil
}

// HandleSweep processes TypeSweep tasks. Only one worker sweeps at a time;
// the others skip.
func (w *Worker) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	ttl := w.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	sweep := func(ctx context.Context) error {
		res, err := w.Svc.Sweep(ctx, w.SweepLimit)
		if err != nil {
			return err
		}
		w.Logger.Info().Int("enqueued", res.Enqueued).Int("already_queued", res.AlreadyQueued).Msg("alert sweep complete")
		return nil
	}
	if w.Locker == nil {
		return sweep(ctx)
	}
	err := w.Locker.TryWithLock(ctx, sweepLockKey, ttl, sweep)
	if errors.Is(err, lock.ErrNotAcquired) {
		w.Logger.Debug().Msg("alert sweep already running elsewhere")
		return nil
	}
	return err
}
