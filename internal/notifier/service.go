// Package notifier consumes order.created events and mails the customer
// an order confirmation. Customer IDs are the customers' email
// addresses, so the event payload already names the recipient.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/susegad/supplies-backend/internal/kafka"
	"github.com/susegad/supplies-backend/internal/redisx"
	"github.com/susegad/supplies-backend/internal/shop"
)

type Service struct {
	Redis       *redis.Client // event dedup; optional
	Mailer      Mailer
	ServiceName string
}

// HandleOrderCreated is mounted as the consumer handler. Redelivered
// events are dropped via the Redis dedup key, so a customer is never
// mailed twice for one order.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventOrderCreated {
		return nil // ignore
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[shop.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Your Susegad Supplies order %s", shortOrderID(p.OrderID))
	if err := s.Mailer.Send(ctx, p.CustomerID, subject, ConfirmationBody(p)); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", p.OrderID, err)
	}
	// marked only after the mail went out, so a failed send stays
	// eligible for redelivery
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	log.Printf("confirmation sent: order=%s to=%s", p.OrderID, p.CustomerID)
	return nil
}

// ConfirmationBody renders the plain-text order summary.
func ConfirmationBody(p shop.OrderCreatedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order!\n\nOrder %s\n\n", p.OrderID)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "  %d x %s (%s) @ %s\n", it.Qty, it.DisplayName, it.VariantKey, it.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\nShipping: %s\n", p.TotalAmount.StringFixed(2), p.ShippingMethod)
	b.WriteString("\nWe'll let you know as soon as it ships.\n")
	return b.String()
}

func shortOrderID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
