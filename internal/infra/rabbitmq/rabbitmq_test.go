package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Save(ctx context.Context, entry gateway.SettlementAudit) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) ListByInvoice(ctx context.Context, invoiceID string, limit int64) ([]gateway.SettlementAudit, error) {
	args := m.Called(ctx, invoiceID, limit)
	return args.Get(0).([]gateway.SettlementAudit), args.Error(1)
}

func TestRabbitMQPublisher_PersistentJSON(t *testing.T) {
	ch := &MockChannel{}
	ch.On("PublishWithContext", mock.Anything, SettlementExchange, "payment.confirmed", false, false,
		mock.MatchedBy(func(p amqp.Publishing) bool {
			return p.DeliveryMode == amqp.Persistent && p.ContentType == "application/json" && string(p.Body) == `{"event":"payment.confirmed"}`
		})).Return(nil)

	err := NewRabbitMQPublisher(ch).Publish(context.Background(), SettlementExchange, "payment.confirmed", map[string]string{"event": "payment.confirmed"})

	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestEffectPublisher_RoutesByKind(t *testing.T) {
	ch := &MockChannel{}
	ch.On("PublishWithContext", mock.Anything, SettlementExchange, "effect.seller_revenue.accrue", false, false, mock.Anything).Return(nil).Once()
	ch.On("PublishWithContext", mock.Anything, SettlementExchange, "effect.stock.reduce", false, false, mock.Anything).Return(errors.New("channel closed")).Once()

	dispatcher := NewEffectPublisher(NewRabbitMQPublisher(ch), 2*time.Second)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	dispatcher.now = func() time.Time { return now }

	err := dispatcher.Dispatch(context.Background(), []domain.Effect{
		{Kind: domain.EffectSellerRevenue, InvoiceID: "inv-1"},
		{Kind: domain.EffectStockReduction, InvoiceID: "inv-1", ItemID: "i1", ProductID: "p1", Quantity: 1},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stock.reduce:inv-1:i1")

	first := ch.Calls[0].Arguments.Get(5).(amqp.Publishing)
	var msg EffectMessage
	require.NoError(t, json.Unmarshal(first.Body, &msg))
	assert.Equal(t, now.Add(2*time.Second), msg.NotBefore)
	assert.Equal(t, "inv-1", msg.Effect.InvoiceID)
}

func TestEffectHandler(t *testing.T) {
	var got []domain.Effect
	handler := EffectHandler(func(_ context.Context, effects []domain.Effect) {
		got = append(got, effects...)
	})

	t.Run("runs the effect", func(t *testing.T) {
		body, _ := json.Marshal(EffectMessage{Effect: domain.Effect{Kind: domain.EffectSellerRevenue, InvoiceID: "inv-1"}})
		require.NoError(t, handler(context.Background(), body))
		require.Len(t, got, 1)
		assert.Equal(t, "inv-1", got[0].InvoiceID)
	})

	t.Run("invalid json is poison", func(t *testing.T) {
		assert.ErrorIs(t, handler(context.Background(), []byte("{")), ErrPoison)
	})

	t.Run("effect without invoice is poison", func(t *testing.T) {
		body, _ := json.Marshal(EffectMessage{Effect: domain.Effect{Kind: domain.EffectSellerRevenue}})
		assert.ErrorIs(t, handler(context.Background(), body), ErrPoison)
	})

	t.Run("shutdown while waiting requeues", func(t *testing.T) {
		body, _ := json.Marshal(EffectMessage{
			Effect:    domain.Effect{Kind: domain.EffectSellerRevenue, InvoiceID: "inv-2"},
			NotBefore: time.Now().Add(time.Hour),
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := handler(ctx, body)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrPoison)
		assert.Len(t, got, 1)
	})
}

func TestAuditHandler(t *testing.T) {
	repo := &MockAuditRepository{}
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(e gateway.SettlementAudit) bool {
		return e.Event == "payment.confirmed" && e.InvoiceID == "inv-1" && e.OccurredAt.Equal(at)
	})).Return(nil).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(e gateway.SettlementAudit) bool {
		return e.Event == "withdrawal.processed"
	})).Return(errors.New("mongo down")).Once()

	handler := AuditHandler(repo, time.Second)

	require.NoError(t, handler(context.Background(), []byte(`{"event":"payment.confirmed","invoice_id":"inv-1","amount":100000,"status":"paid","occurred_at":"2026-05-01T10:00:00Z"}`)))

	err := handler(context.Background(), []byte(`{"event":"withdrawal.processed"}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPoison)

	assert.ErrorIs(t, handler(context.Background(), []byte(`{"status":"paid"}`)), ErrPoison)
	repo.AssertExpectations(t)
}
