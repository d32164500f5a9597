package websocket

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"auction-ledger/internal/domain"
	"auction-ledger/internal/services"
	"auction-ledger/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// FeedHandler upgrades watchers onto the live feed of a single item.
type FeedHandler struct {
	engine      *services.AuctionEngine
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewFeedHandler(engine *services.AuctionEngine,
	connManager domain.ConnectionManager, log logger.Logger) *FeedHandler {
	return &FeedHandler{
		engine:      engine,
		connManager: connManager,
		log:         log,
	}
}

func (h *FeedHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rawID, err := strconv.ParseUint(vars["itemID"], 10, 64)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	itemID := domain.ItemID(rawID)

	item, err := h.engine.GetItem(r.Context(), itemID)
	if errors.Is(err, domain.AuctionNotFound) {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to load item", "error", err, "item_id", itemID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !item.IsActive {
		h.log.Info("Rejected connection, item is closed", "item_id", itemID)
		http.Error(w, "item is closed", http.StatusForbidden)
		return
	}

	watcherID := r.URL.Query().Get("watcher_id")
	if watcherID == "" {
		http.Error(w, "watcher_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	feedConn := NewFeedConnection(conn, watcherID, itemID)

	if err := h.connManager.RegisterConnection(watcherID, itemID, feedConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.handleMessages(feedConn, watcherID, itemID)
}

// handleMessages drains the watcher side of the connection. The feed is
// one-way apart from pings; anything else is ignored.
func (h *FeedHandler) handleMessages(conn *FeedConnection, watcherID string, itemID domain.ItemID) {
	defer func() {
		h.connManager.UnregisterConnection(watcherID, itemID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			h.log.Debug("Watcher disconnected", "watcher_id", watcherID, "item_id", itemID)
			break
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			conn.Send(map[string]string{"type": "pong"})
		}
	}
}

type FeedConnection struct {
	conn      *websocket.Conn
	watcherID string
	itemID    domain.ItemID
	writeMu   sync.Mutex
}

func NewFeedConnection(conn *websocket.Conn, watcherID string, itemID domain.ItemID) *FeedConnection {
	return &FeedConnection{
		conn:      conn,
		watcherID: watcherID,
		itemID:    itemID,
	}
}

func (fc *FeedConnection) Send(message interface{}) error {
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	return fc.conn.WriteJSON(message)
}

func (fc *FeedConnection) Close() error {
	return fc.conn.Close()
}

func (fc *FeedConnection) WatcherID() string {
	return fc.watcherID
}

func (fc *FeedConnection) ItemID() domain.ItemID {
	return fc.itemID
}
