package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/commerce-blocks/guest-orders/internal/platform/textutil"
	"github.com/commerce-blocks/guest-orders/internal/services"
)

// PubSubEventPublisher publishes guest order domain events to a Pub/Sub topic.
type PubSubEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed guest order event publisher.
func NewPubSubEventPublisher(topic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishGuestOrderEvent enqueues an event message on the configured topic.
func (p *PubSubEventPublisher) PublishGuestOrderEvent(ctx context.Context, event services.GuestOrderEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal guest order event: %w", err)
	}

	attrs := map[string]string{
		"type":           event.Type,
		"orderId":        event.OrderID,
		"organizationId": event.OrganizationID,
		"status":         event.Status,
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: textutil.NormalizeStringMap(attrs),
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish guest order event: %w", err)
	}
	return nil
}
