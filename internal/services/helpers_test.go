package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(i int) *int { return &i }

func idPtr(i int64) *int64 { return &i }

func simpleReq(title string, typ core.TxType, value, category string, date core.Date) core.CreateRequest {
	return core.CreateRequest{
		Title:    title,
		Value:    dec(value),
		Type:     typ,
		Category: category,
		Date:     date,
	}
}

type publishedEvent struct {
	Event  amqp.EventType
	UserID int64
	ID     int64
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, event amqp.EventType, userID, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Event: event, UserID: userID, ID: id})
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func newTestService(t *testing.T) (*TransactionService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return NewTransactionService(store, pub), store, pub
}

func mustCreate(t *testing.T, svc *TransactionService, req core.CreateRequest, userID int64) core.Transaction {
	t.Helper()
	res, err := svc.Create(context.Background(), req, userID)
	require.NoError(t, err)
	return res.Transaction
}
