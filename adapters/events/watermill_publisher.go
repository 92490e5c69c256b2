package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
)

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
	}
}

// PublishSweepCompleted publishes a sweep completed event
func (p *WatermillPublisher) PublishSweepCompleted(ctx context.Context, event core.SweepCompleted) error {
	return p.publish(ctx, core.SweepCompletedTopic, event.Account, event)
}

// PublishPaymentRecorded publishes a payment recorded event
func (p *WatermillPublisher) PublishPaymentRecorded(ctx context.Context, event core.PaymentRecorded) error {
	return p.publish(ctx, core.PaymentRecordedTopic, event.Account, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, account core.Address, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("account", account.String())
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debugf("Published %v for account %v", topic, account)

	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishSweepCompleted(context.Context, core.SweepCompleted) error {
	return nil
}

func (NopPublisher) PublishPaymentRecorded(context.Context, core.PaymentRecorded) error {
	return nil
}
