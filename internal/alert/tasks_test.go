package alert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/oilprice-ni/internal/lock"
)

type fakeLocker struct {
	held  bool
	calls []string
}

func (l *fakeLocker) TryWithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	l.calls = append(l.calls, key)
	if l.held {
		return lock.ErrNotAcquired
	}
	return fn(ctx)
}

func TestNewEvaluateTaskPayload(t *testing.T) {
	id := uuid.MustParse("0b7c6a52-58c4-4c3e-9f5e-2a0d5cdb9e11")
	task, err := NewEvaluateTask(id)
	require.NoError(t, err)
	require.Equal(t, TypeEvaluate, task.Type())
	require.JSONEq(t, `{"alert_id":"0b7c6a52-58c4-4c3e-9f5e-2a0d5cdb9e11"}`, string(task.Payload()))
	require.Equal(t, TypeSweep, NewSweepTask().Type())
}

func TestHandleEvaluate(t *testing.T) {
	f := newFixture(t)
	w := &Worker{Svc: f.svc, Logger: zerolog.Nop()}
	ctx := context.Background()
	created, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	task, err := NewEvaluateTask(created.ID)
	require.NoError(t, err)
	require.NoError(t, w.HandleEvaluate(ctx, task))
	require.Len(t, f.outbox.Outbox, 1)

	missing, err := NewEvaluateTask(uuid.New())
	require.NoError(t, err)
	require.NoError(t, w.HandleEvaluate(ctx, missing), "deleted alerts are dropped")

	err = w.HandleEvaluate(ctx, asynq.NewTask(TypeEvaluate, []byte("{")))
	require.True(t, errors.Is(err, asynq.SkipRetry))

	payload, _ := json.Marshal(map[string]string{})
	err = w.HandleEvaluate(ctx, asynq.NewTask(TypeEvaluate, payload))
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleSweepUsesLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)
	f.enqueuer.ids = nil

	locker := &fakeLocker{}
	w := &Worker{Svc: f.svc, Locker: locker, SweepLimit: 50, Logger: zerolog.Nop()}
	require.NoError(t, w.HandleSweep(ctx, NewSweepTask()))
	require.Equal(t, []string{sweepLockKey}, locker.calls)
	require.Len(t, f.enqueuer.ids, 1)

	locker.held = true
	f.enqueuer.ids = nil
	require.NoError(t, w.HandleSweep(ctx, NewSweepTask()))
	require.Empty(t, f.enqueuer.ids)
}

func TestTaskEnqueuerRequiresClient(t *testing.T) {
	err := TaskEnqueuer{}.EnqueueEvaluate(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestTaskEnqueuerDedupWindowExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	enq := TaskEnqueuer{Client: client, Queue: "alerts", MaxRetry: 1, DedupWindow: time.Minute}
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, enq.EnqueueEvaluate(ctx, id))

	// Park the task in the archived set, where asynq leaves it after the
	// last retry fails.
	taskID, err := mr.Lpop("asynq:{alerts}:pending")
	require.NoError(t, err)
	_, err = mr.ZAdd("asynq:{alerts}:archived", float64(time.Now().Unix()), taskID)
	require.NoError(t, err)
	mr.HSet("asynq:{alerts}:t:"+taskID, "state", "archived")

	require.ErrorIs(t, enq.EnqueueEvaluate(ctx, id), ErrAlreadyQueued)
	require.NoError(t, enq.EnqueueEvaluate(ctx, uuid.New()), "dedup is per alert")

	mr.FastForward(2 * time.Minute)
	require.NoError(t, enq.EnqueueEvaluate(ctx, id))

	pending, err := mr.List("asynq:{alerts}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	archived, err := mr.ZMembers("asynq:{alerts}:archived")
	require.NoError(t, err)
	require.Equal(t, []string{taskID}, archived)
}

func TestRegisterRoutesTasks(t *testing.T) {
	f := newFixture(t)
	w := &Worker{Svc: f.svc, Logger: zerolog.Nop()}
	mux := asynq.NewServeMux()
	w.Register(mux)

	h, pattern := mux.Handler(NewSweepTask())
	require.Equal(t, TypeSweep, pattern)
	require.NotNil(t, h)
}
