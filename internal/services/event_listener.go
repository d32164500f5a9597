package services

import (
	"context"
	"fmt"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

// EventListener bridges the Redis event stream to the websocket
// watchers and the durable event archive.
type EventListener struct {
	connectionManager domain.ConnectionManager
	archive           domain.EventArchive
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager,
	archive domain.EventArchive, log logger.Logger) *EventListener {
	return &EventListener{
		connectionManager: connectionManager,
		archive:           archive,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToItemEvents(ctx, el.handleItemEvent)
}

func (el *EventListener) handleItemEvent(ctx context.Context, event *domain.ItemEvent) error {
	el.log.Info("Handling item event", "type", event.Type, "item_id", event.ItemID)

	if el.archive != nil {
		if err := el.archive.SaveItemEvent(ctx, event); err != nil {
			el.log.Error("Failed to archive event", "event_id", event.ID, "error", err)
		}
	}

	switch event.Type {
	case domain.BidAccepted:
		return el.handleBidAccepted(event)
	case domain.ItemClosed:
		return el.handleItemClosed(event)
	case domain.ItemListed, domain.ItemEdited:
		return el.broadcast(event)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleBidAccepted(event *domain.ItemEvent) error {
	return el.connectionManager.BroadcastToItem(event.ItemID, map[string]interface{}{
		"type":        "bid_update",
		"item_id":     event.ItemID,
		"current_bid": event.Amount,
		"bidder":      event.Actor,
		"timestamp":   event.Timestamp,
	})
}

func (el *EventListener) handleItemClosed(event *domain.ItemEvent) error {
	if err := el.connectionManager.BroadcastToItem(event.ItemID, map[string]interface{}{
		"type":      "item_closed",
		"item_id":   event.ItemID,
		"amount":    event.Amount,
		"timestamp": event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast close event", "item_id", event.ItemID, "error", err)
		return err
	}

	// A closed item gets no further events, drop its watchers.
	if err := el.connectionManager.CloseAndUnregisterConnections(event.ItemID); err != nil {
		el.log.Error("Failed to finalize connections for item", "item_id", event.ItemID, "error", err)
		return err
	}
	return nil
}

func (el *EventListener) broadcast(event *domain.ItemEvent) error {
	return el.connectionManager.BroadcastToItem(event.ItemID, map[string]interface{}{
		"type":      string(event.Type),
		"item_id":   event.ItemID,
		"timestamp": event.Timestamp,
	})
}
