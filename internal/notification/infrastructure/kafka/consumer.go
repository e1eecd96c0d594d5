// Package kafka consumes order events and records notifications.
// Delivery is best effort: a failed handle is logged and committed past
// so one poison message cannot wedge the group.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefleet/commerce-core/internal/notification/application"
	"github.com/storefleet/commerce-core/internal/notification/domain"
	orderdom "github.com/storefleet/commerce-core/internal/order/domain"
	"github.com/storefleet/commerce-core/pkg/idempotency"
	"github.com/storefleet/commerce-core/pkg/tracing"
)

// messageReader is the slice of kafka.Reader the consume loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// dedup is the offset dedup contract, satisfied by idempotency.Store.
type dedup interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

type Consumer struct {
	log    *slog.Logger
	reader messageReader
	svc    *application.Service
	idem   dedup
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc *application.Service, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return newConsumer(log, r, svc, idem)
}

func newConsumer(log *slog.Logger, reader messageReader, svc *application.Service, idem dedup) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderEvent")

		eventType := tracing.KafkaHeaderValue(msg.Headers, "event_type")
		if err := c.handle(msgCtx, eventType, msg.Value); err != nil {
			c.log.Error("notification handling failed",
				"event_type", eventType, "err", err)
		}
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, eventType string, value []byte) error {
	var ev orderdom.OrderEventPayload
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	switch eventType {
	case orderdom.EventOrderConfirmed:
		_, err := c.svc.Record(ctx, ev.UserID, domain.TypeOrderConfirmed,
			"Your order is confirmed",
			fmt.Sprintf("Order %s was confirmed for a total of %d cents.", ev.OrderID, ev.TotalAmountCents))
		return err
	case orderdom.EventOrderCancelled:
		_, err := c.svc.Record(ctx, ev.UserID, domain.TypeOrderCancelled,
			"Your order was cancelled",
			fmt.Sprintf("Order %s was cancelled.", ev.OrderID))
		return err
	default:
		c.log.Debug("ignoring event", "event_type", eventType)
		return nil
	}
}
