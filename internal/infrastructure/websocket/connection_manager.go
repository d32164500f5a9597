package websocket

import (
	"sync"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

// ConnectionManager tracks live feed connections keyed by the item they
// watch. Watchers are anonymous spectators, one connection per watcher
// per item.
type ConnectionManager struct {
	connections map[domain.ItemID]map[string]domain.ItemConnection // itemID -> watcherID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[domain.ItemID]map[string]domain.ItemConnection),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(watcherID string, itemID domain.ItemID, conn domain.ItemConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[itemID] == nil {
		cm.connections[itemID] = make(map[string]domain.ItemConnection)
	}
	cm.connections[itemID][watcherID] = conn

	cm.log.Info("Connection registered", "watcher_id", watcherID, "item_id", itemID)
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(watcherID string, itemID domain.ItemID) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if itemConns, exists := cm.connections[itemID]; exists {
		delete(itemConns, watcherID)
		if len(itemConns) == 0 {
			delete(cm.connections, itemID)
		}
	}

	cm.log.Info("Connection unregistered", "watcher_id", watcherID, "item_id", itemID)
	return nil
}

func (cm *ConnectionManager) CloseAndUnregisterConnections(itemID domain.ItemID) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if itemConns, exists := cm.connections[itemID]; exists {
		for watcherID, conn := range itemConns {
			if err := conn.Close(); err != nil {
				cm.log.Error("Failed to close connection", "watcher_id", watcherID,
					"item_id", itemID, "error", err)
			}
		}
		delete(cm.connections, itemID)
	}

	cm.log.Info("Connections closed for item", "item_id", itemID)
	return nil
}

func (cm *ConnectionManager) GetConnectionsForItem(itemID domain.ItemID) []domain.ItemConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var connections []domain.ItemConnection
	for _, conn := range cm.connections[itemID] {
		connections = append(connections, conn)
	}
	return connections
}

func (cm *ConnectionManager) BroadcastToItem(itemID domain.ItemID, message interface{}) error {
	connections := cm.GetConnectionsForItem(itemID)

	for _, conn := range connections {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "watcher_id", conn.WatcherID(),
				"item_id", itemID, "error", err)
			// Continue to other connections
		}
	}

	return nil
}
