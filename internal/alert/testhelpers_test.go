package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
	"github.com/noah-isme/oilprice-ni/internal/quote"
	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

var fixedNow = time.Date(2026, 2, 3, 7, 0, 0, 0, time.UTC)

type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (r *recordingEnqueuer) EnqueueEvaluate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.ids = append(r.ids, id)
	return nil
}

type fixture struct {
	svc       *Service
	store     *MemoryStore
	enqueuer  *recordingEnqueuer
	outbox    *common.InMemoryEmail
	suppliers *supplier.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.DefaultConfig())
	require.NoError(t, err)
	suppliers := supplier.NewMemoryStore(
		supplier.Supplier{Name: "Lough Neagh Fuels", Slug: "lough-neagh-fuels", Phone: "028 9446 0000", Areas: []string{"BT41"}, BasePrice: 290, BaseVolume: 500},
		supplier.Supplier{Name: "Antrim Oils", Slug: "antrim-oils", Areas: []string{"BT41"}, BasePrice: 300, BaseVolume: 500},
	)
	quotes := &quote.Service{Engine: engine, Suppliers: suppliers, Logger: zerolog.Nop()}
	store := NewMemoryStore()
	enq := &recordingEnqueuer{}
	outbox := &common.InMemoryEmail{}
	svc := &Service{
		Store:    store,
		Quotes:   quotes,
		Engine:   engine,
		Enqueuer: enq,
		Notifier: EmailNotifier{Mail: outbox},
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
	}
	return fixture{svc: svc, store: store, enqueuer: enq, outbox: outbox, suppliers: suppliers}
}
