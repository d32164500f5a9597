package domain

import (
	"context"
)

// ItemStore is the durable ItemID -> Item mapping every operation goes
// through. Get returns (nil, nil) when the id is absent. Insert replaces
// the stored value and returns the previous one, or nil if the id was
// new; the engine treats a nil previous value on an update path as a
// failed write. Iterate visits records in ascending id order so that
// tie-breaks in the derived queries are reproducible.
type ItemStore interface {
	Get(ctx context.Context, id ItemID) (*Item, error)
	Insert(ctx context.Context, id ItemID, item *Item) (*Item, error)
	Iterate(ctx context.Context, fn func(id ItemID, item *Item) bool) error
	Len(ctx context.Context) (uint64, error)
}

// Event interfaces
type EventPublisher interface {
	PublishItemEvent(ctx context.Context, event *ItemEvent) error
}

type EventSubscriber interface {
	SubscribeToItemEvents(ctx context.Context, handler EventHandler) error
}

// EventHandler receives decoded events under the subscription's context,
// so handler side effects stop with the subscription.
type EventHandler func(ctx context.Context, event *ItemEvent) error

// EventArchive keeps a durable row per published event.
type EventArchive interface {
	SaveItemEvent(ctx context.Context, event *ItemEvent) error
	GetItemHistory(ctx context.Context, itemID ItemID) ([]*ItemEvent, error)
}

// StatsCache holds the refreshed aggregate snapshot.
type StatsCache interface {
	SetSnapshot(ctx context.Context, snapshot *StatsSnapshot) error
	GetSnapshot(ctx context.Context) (*StatsSnapshot, error)
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type ItemConnection interface {
	Send(message interface{}) error
	Close() error
	WatcherID() string
	ItemID() ItemID
}

type ConnectionManager interface {
	RegisterConnection(watcherID string, itemID ItemID, conn ItemConnection) error
	UnregisterConnection(watcherID string, itemID ItemID) error
	GetConnectionsForItem(itemID ItemID) []ItemConnection
	BroadcastToItem(itemID ItemID, message interface{}) error
	CloseAndUnregisterConnections(itemID ItemID) error
}
