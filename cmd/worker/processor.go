package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-order-edits/internal/aws"
	"github.com/imrishuroy/go-order-edits/internal/outbox"
)

// Processor relays committed outbox records to SQS. The edit core stages an
// outbox put inside every mutating transaction; this relay is the only
// publisher, so a message on the queue always implies a committed write.
type Processor struct {
	outbox    *outbox.Store
	publisher *aws.Publisher
	metrics   *aws.MetricsRecorder
}

// NewProcessor creates a relay Processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, outboxTable, queueURL string) *Processor {
	return &Processor{
		outbox:    outbox.NewStore(clients.DynamoDB, outboxTable),
		publisher: aws.NewPublisher(clients.SQS, queueURL),
		metrics:   aws.NewMetricsRecorder(clients.CloudWatch, "OrderEdits"),
	}
}

// HandleStream consumes the outbox table's DynamoDB stream. Only inserts
// matter; relay and mark-sent are idempotent under stream redelivery.
func (p *Processor) HandleStream(ctx context.Context, ev events.DynamoDBEvent) error {
	for _, rec := range ev.Records {
		if rec.EventName != "INSERT" {
			continue
		}
		key, ok := rec.Change.Keys["event_id"]
		if !ok {
			log.Printf("[relay] stream record without event_id key, skipping")
			continue
		}
		if err := p.relay(ctx, key.String()); err != nil {
			// Return error: Lambda retries the batch; sent records are
			// skipped on replay via the conditional mark.
			return err
		}
	}
	return nil
}

// RelayPending drains unsent records, used by the local polling mode.
// Returns the number of records published.
func (p *Processor) RelayPending(ctx context.Context, batchSize int32) (int, error) {
	pending, err := p.outbox.ListPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, rec := range pending {
		if err := p.relay(ctx, rec.EventID); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (p *Processor) relay(ctx context.Context, eventID string) error {
	rec, err := p.outbox.Get(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load outbox record %s: %w", eventID, err)
	}
	if rec == nil {
		log.Printf("[relay] outbox record %s vanished, skipping", eventID)
		return nil
	}
	if rec.SentAt != "" {
		return nil
	}

	attrs := map[string]string{
		"event_id":   rec.EventID,
		"event_name": rec.EventName,
		"edit_id":    rec.EditID,
		"order_id":   rec.OrderID,
	}
	if err := p.publisher.SendEventMessage(ctx, rec.Payload, attrs); err != nil {
		return fmt.Errorf("publish outbox record %s: %w", eventID, err)
	}

	if err := p.outbox.MarkSent(ctx, rec.EventID); err != nil {
		if errors.Is(err, outbox.ErrAlreadySent) {
			log.Printf("[relay] duplicate delivery for %s", rec.EventID)
			return nil
		}
		return err
	}

	if err := p.metrics.CountEvent(ctx, rec.EventName); err != nil {
		// metrics are best effort
		log.Printf("[relay] metric error for %s: %v", rec.EventName, err)
	}
	log.Printf("[relay] published %s edit=%s order=%s", rec.EventName, rec.EditID, rec.OrderID)
	return nil
}
