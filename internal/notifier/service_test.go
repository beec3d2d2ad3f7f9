package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/susegad/supplies-backend/internal/notifier"
	"github.com/susegad/supplies-backend/internal/shop"
)

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7.4-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	rdb := goredis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func samplePayload() shop.OrderCreatedPayload {
	return shop.OrderCreatedPayload{
		OrderID:    uuid.NewString(),
		CustomerID: "ines@example.com",
		Items: []shop.OrderItemSnapshot{
			{VariantKey: uuid.NewString() + "::250g", DisplayName: "Cashew Chikki", UnitPrice: decimal.NewFromInt(10), Qty: 2},
			{VariantKey: uuid.NewString() + "::1kg", DisplayName: "Alphonso Jam", UnitPrice: decimal.RequireFromString("2.50"), Qty: 1},
		},
		TotalAmount:    decimal.RequireFromString("22.50"),
		ShippingMethod: "standard",
	}
}

func envelopeFor(t *testing.T, eventType string, p shop.OrderCreatedPayload) kafkago.Message {
	t.Helper()

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	env := shop.Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "supplies-api",
		Payload:      raw,
	}
	val, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(p.OrderID), Value: val}
}

func TestHandleOrderCreatedSendsConfirmation(t *testing.T) {
	mailer := &fakeMailer{}
	svc := &notifier.Service{Mailer: mailer, ServiceName: "notifier-svc"}
	p := samplePayload()

	err := svc.HandleOrderCreated(context.Background(), envelopeFor(t, shop.EventOrderCreated, p))
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	mail := mailer.sent[0]
	assert.Equal(t, p.CustomerID, mail.to)
	assert.Contains(t, mail.subject, p.OrderID[:8])
	assert.Contains(t, mail.body, "Cashew Chikki")
	assert.Contains(t, mail.body, "Alphonso Jam")
	assert.Contains(t, mail.body, "22.50")
}

func TestHandleOrderCreatedIgnoresOtherEvents(t *testing.T) {
	mailer := &fakeMailer{}
	svc := &notifier.Service{Mailer: mailer}

	err := svc.HandleOrderCreated(context.Background(), envelopeFor(t, "OrderShipped", samplePayload()))
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestHandleOrderCreatedRejectsGarbage(t *testing.T) {
	mailer := &fakeMailer{}
	svc := &notifier.Service{Mailer: mailer}

	err := svc.HandleOrderCreated(context.Background(), kafkago.Message{Value: []byte("not json")})
	require.Error(t, err)
	assert.Empty(t, mailer.sent)
}

func TestHandleOrderCreatedPropagatesSendFailure(t *testing.T) {
	sendErr := errors.New("smtp refused")
	svc := &notifier.Service{Mailer: &fakeMailer{err: sendErr}}
	p := samplePayload()

	err := svc.HandleOrderCreated(context.Background(), envelopeFor(t, shop.EventOrderCreated, p))
	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
	assert.Contains(t, err.Error(), p.OrderID)
}

// A redelivered event mails the customer at most once.
func TestHandleOrderCreatedDeduplicatesRedelivery(t *testing.T) {
	rdb := startRedis(t)
	mailer := &fakeMailer{}
	svc := &notifier.Service{Redis: rdb, Mailer: mailer}
	msg := envelopeFor(t, shop.EventOrderCreated, samplePayload())

	require.NoError(t, svc.HandleOrderCreated(t.Context(), msg))
	require.NoError(t, svc.HandleOrderCreated(t.Context(), msg))
	assert.Len(t, mailer.sent, 1)
}

// A send failure must not mark the event as handled; the redelivery
// still reaches the customer.
func TestHandleOrderCreatedSendFailureStaysEligible(t *testing.T) {
	rdb := startRedis(t)
	mailer := &fakeMailer{err: errors.New("smtp refused")}
	svc := &notifier.Service{Redis: rdb, Mailer: mailer}
	msg := envelopeFor(t, shop.EventOrderCreated, samplePayload())

	require.Error(t, svc.HandleOrderCreated(t.Context(), msg))

	mailer.err = nil
	require.NoError(t, svc.HandleOrderCreated(t.Context(), msg))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ines@example.com", mailer.sent[0].to)
}

func TestConfirmationBody(t *testing.T) {
	p := samplePayload()
	body := notifier.ConfirmationBody(p)

	assert.Contains(t, body, p.OrderID)
	assert.Contains(t, body, "2 x Cashew Chikki")
	assert.Contains(t, body, "1 x Alphonso Jam")
	assert.Contains(t, body, "@ 10.00")
	assert.Contains(t, body, "@ 2.50")
	assert.Contains(t, body, "Total: 22.50")
	assert.Contains(t, body, "Shipping: standard")
}
