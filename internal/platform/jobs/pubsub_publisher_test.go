package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/commerce-blocks/guest-orders/internal/services"
)

func TestPubSubEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "guest-order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubEventPublisher: %v", err)
	}

	event := services.GuestOrderEvent{
		Type:           "guest_order.created",
		OrderID:        "gord_test",
		OrganizationID: "org_1",
		Status:         "PENDING",
		OccurredAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Metadata:       map[string]any{"lineItems": 2},
	}

	if err := publisher.PublishGuestOrderEvent(ctx, event); err != nil {
		t.Fatalf("PublishGuestOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.GuestOrderEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != event.OrderID || payload.Type != event.Type {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["organizationId"]; attr != "org_1" {
		t.Fatalf("expected organizationId attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["status"]; attr != "PENDING" {
		t.Fatalf("expected status attribute, got %q", attr)
	}
}

func TestNewPubSubEventPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubEventPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
