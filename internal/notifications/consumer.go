package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox/idempotency"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox/payloads"
)

const allocationNotificationConsumer = "allocation-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and materializes in-app notifications
// for the buyers and sellers they concern.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !notifiableEvent(eventType) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, allocationNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := c.buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, allocationNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}

	notification.ID = uuid.New()
	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		_ = c.idempotency.Delete(ctx, allocationNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithField(logCtx, "recipient_id", notification.RecipientID.String())
	c.logg.Info(logCtx, "notification materialized")
	return processResult{ack: true}
}

func notifiableEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventAllocationCreated,
		enums.EventAllocationTimedOut,
		enums.EventOrderProcessing,
		enums.EventOrderCompleted,
		enums.EventOrderCancelled,
		enums.EventNotificationRequested:
		return true
	}
	return false
}

func (c *Consumer) buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventAllocationCreated:
		var payload payloads.AllocationCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.SellerID == uuid.Nil {
			return nil, fmt.Errorf("seller id missing")
		}
		link := fmt.Sprintf("/allocations/%s", payload.AllocationID)
		return &models.Notification{
			RecipientID: payload.SellerID,
			Type:        enums.NotificationTypeAllocationAlert,
			Title:       "New allocation offer",
			Message: fmt.Sprintf("You have been offered %s kg of %s. Respond by %s.",
				payload.Qty, payload.ProductID, payload.RespondBy.Format("02 Jan 2006 15:04 MST")),
			Link: stringPtr(link),
		}, nil

	case enums.EventAllocationTimedOut:
		var payload payloads.AllocationTimedOutEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.SellerID == uuid.Nil {
			return nil, fmt.Errorf("seller id missing")
		}
		link := fmt.Sprintf("/allocations/%s", payload.AllocationID)
		return &models.Notification{
			RecipientID: payload.SellerID,
			Type:        enums.NotificationTypeAllocationAlert,
			Title:       "Allocation offer expired",
			Message:     "An allocation offer lapsed before you responded and was reassigned.",
			Link:        stringPtr(link),
		}, nil

	case enums.EventOrderProcessing:
		var payload payloads.OrderProcessingEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.BuyerID == uuid.Nil {
			return nil, fmt.Errorf("buyer id missing")
		}
		link := fmt.Sprintf("/orders/%s", payload.OrderID)
		return &models.Notification{
			RecipientID: payload.BuyerID,
			Type:        enums.NotificationTypeOrderAlert,
			Title:       "Order confirmed",
			Message:     "Every seller confirmed your order. Fulfillment is underway.",
			Link:        stringPtr(link),
		}, nil

	case enums.EventOrderCompleted:
		var payload payloads.OrderCompletedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.BuyerID == uuid.Nil {
			return nil, fmt.Errorf("buyer id missing")
		}
		link := fmt.Sprintf("/orders/%s", payload.OrderID)
		return &models.Notification{
			RecipientID: payload.BuyerID,
			Type:        enums.NotificationTypeOrderAlert,
			Title:       "Order delivered",
			Message:     "Your order has been delivered and marked complete.",
			Link:        stringPtr(link),
		}, nil

	case enums.EventOrderCancelled:
		var payload payloads.OrderCancelledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.BuyerID == uuid.Nil {
			return nil, fmt.Errorf("buyer id missing")
		}
		link := fmt.Sprintf("/orders/%s", payload.OrderID)
		message := "Your order was cancelled."
		if payload.ReturnApprovalsNeeded > 0 {
			message = fmt.Sprintf("Your order was cancelled. %d accepted allocation(s) await return approval.",
				payload.ReturnApprovalsNeeded)
		}
		return &models.Notification{
			RecipientID: payload.BuyerID,
			Type:        enums.NotificationTypeOrderAlert,
			Title:       "Order cancelled",
			Message:     message,
			Link:        stringPtr(link),
		}, nil

	case enums.EventNotificationRequested:
		var payload payloads.NotificationRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.RecipientID == uuid.Nil {
			return nil, fmt.Errorf("recipient id missing")
		}
		if !payload.Type.IsValid() {
			return nil, fmt.Errorf("invalid notification type %q", payload.Type)
		}
		return &models.Notification{
			RecipientID: payload.RecipientID,
			Type:        payload.Type,
			Title:       payload.Title,
			Message:     payload.Message,
			Link:        payload.Link,
		}, nil
	}
	return nil, nil
}

func stringPtr(value string) *string {
	return &value
}
