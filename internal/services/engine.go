package services

import (
	"context"
	"time"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"

	"github.com/google/uuid"
)

// AuctionEngine enforces the listing/bid state machine over a single
// item store. Each mutating operation is one read-modify-write against
// one key; preconditions are checked before any write, so a failed
// operation leaves the store unchanged. The host serializes mutating
// calls, so the engine itself takes no locks.
type AuctionEngine struct {
	store    domain.ItemStore
	eventPub domain.EventPublisher
	log      logger.Logger
}

func NewAuctionEngine(store domain.ItemStore, eventPub domain.EventPublisher, log logger.Logger) *AuctionEngine {
	return &AuctionEngine{
		store:    store,
		eventPub: eventPub,
		log:      log,
	}
}

// CreateItem stores a new listing under a caller-chosen id. The caller
// becomes the owner; the winner slot starts out anonymous and the bid
// ledger empty. An id that is already taken is rejected rather than
// silently overwritten.
func (e *AuctionEngine) CreateItem(ctx context.Context, caller domain.Principal, id domain.ItemID, draft domain.ItemDraft) (*domain.Item, error) {
	existing, err := e.store.Get(ctx, id)
	if err != nil {
		e.log.Error("Store lookup failed", "item_id", id, "error", err)
		return nil, domain.AuctionUpdateError
	}
	if existing != nil {
		return nil, domain.AuctionDuplicateItem
	}

	item := &domain.Item{
		ID:          id,
		Title:       draft.Title,
		Description: draft.Description,
		Owner:       caller,
		NewOwner:    domain.Anonymous,
		Currency:    draft.Currency,
		Amount:      0,
		IsActive:    draft.IsActive,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		Bids:        []domain.Bid{},
	}

	if _, err := e.store.Insert(ctx, id, item); err != nil {
		e.log.Error("Failed to store new item", "item_id", id, "error", err)
		return nil, domain.AuctionUpdateError
	}

	e.log.Info("Item listed", "item_id", id, "owner", caller)
	e.publish(ctx, domain.ItemListed, id, caller, 0)
	return item, nil
}

// EditItem replaces the display, currency and timing fields of a
// listing. Only the owner may edit, and only while the item is active;
// a draft with is_active=false is rejected because closing happens
// exclusively through EndItem. Amount, bid ledger, owner and winner are
// preserved untouched.
func (e *AuctionEngine) EditItem(ctx context.Context, caller domain.Principal, id domain.ItemID, draft domain.ItemDraft) error {
	item, err := e.store.Get(ctx, id)
	if err != nil {
		e.log.Error("Store lookup failed", "item_id", id, "error", err)
		return domain.AuctionUpdateError
	}
	if item == nil {
		return domain.AuctionNotFound
	}
	if caller != item.Owner {
		return domain.AuctionAccessRejected
	}
	if !draft.IsActive {
		return domain.AuctionNotActive
	}

	updated := &domain.Item{
		ID:          item.ID,
		Title:       draft.Title,
		Description: draft.Description,
		Owner:       item.Owner,
		NewOwner:    item.NewOwner,
		Currency:    draft.Currency,
		Amount:      item.Amount,
		IsActive:    item.IsActive,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		Bids:        item.Bids,
	}

	prev, err := e.store.Insert(ctx, id, updated)
	if err != nil || prev == nil {
		e.log.Error("Failed to update item", "item_id", id, "error", err)
		return domain.AuctionUpdateError
	}

	e.log.Info("Item edited", "item_id", id, "owner", caller)
	e.publish(ctx, domain.ItemEdited, id, caller, item.Amount)
	return nil
}

// EndItem is the sole close transition: it deactivates the listing and
// fixes the winner. The winning bid is the one with the greatest
// amount, earliest bid first on ties; with no bids the winner slot
// stays anonymous. A closed item cannot be closed again, so the winner
// is written exactly once.
func (e *AuctionEngine) EndItem(ctx context.Context, caller domain.Principal, id domain.ItemID) error {
	item, err := e.store.Get(ctx, id)
	if err != nil {
		e.log.Error("Store lookup failed", "item_id", id, "error", err)
		return domain.AuctionUpdateError
	}
	if item == nil {
		return domain.AuctionNotFound
	}
	if caller != item.Owner {
		return domain.AuctionAccessRejected
	}
	if !item.IsActive {
		return domain.AuctionNotActive
	}

	item.IsActive = false
	item.NewOwner = winningBidder(item.Bids)

	prev, err := e.store.Insert(ctx, id, item)
	if err != nil || prev == nil {
		e.log.Error("Failed to close item", "item_id", id, "error", err)
		return domain.AuctionUpdateError
	}

	e.log.Info("Item closed", "item_id", id, "winner", item.NewOwner, "amount", item.Amount)
	e.publish(ctx, domain.ItemClosed, id, caller, item.Amount)
	return nil
}

// winningBidder scans the ledger for the bid with maximal amount.
// Strictly-greater comparison keeps the earliest bid on ties.
func winningBidder(bids []domain.Bid) domain.Principal {
	var maxAmount uint64
	winner := domain.Anonymous
	for _, b := range bids {
		if b.Amount > maxAmount {
			maxAmount = b.Amount
			winner = b.Owner
		}
	}
	return winner
}

// PlaceBid appends an accepted bid and raises the item's amount to it.
// A bid is accepted only while the item is active, only when it
// strictly exceeds the current amount, and never from the item's owner.
// A bid arriving after close is rejected, never queued.
func (e *AuctionEngine) PlaceBid(ctx context.Context, caller domain.Principal, id domain.ItemID, req domain.BidRequest) error {
	item, err := e.store.Get(ctx, id)
	if err != nil {
		e.log.Error("Store lookup failed", "item_id", id, "error", err)
		return domain.BidUpdateError
	}
	if item == nil {
		return domain.BidItemNotFound
	}
	if !item.IsActive {
		return domain.BidAuctionNotActive
	}
	if req.Amount <= item.Amount {
		return domain.BidAmountLessThanCurrent
	}
	if caller == item.Owner {
		return domain.BidOwnerIsNotValid
	}

	item.Bids = append(item.Bids, domain.Bid{
		Owner:    caller,
		Amount:   req.Amount,
		Currency: req.Currency,
		IsActive: true,
	})
	item.Amount = req.Amount

	prev, err := e.store.Insert(ctx, id, item)
	if err != nil || prev == nil {
		e.log.Error("Failed to record bid", "item_id", id, "bidder", caller, "error", err)
		return domain.BidUpdateError
	}

	e.log.Info("Bid accepted", "item_id", id, "bidder", caller, "amount", req.Amount)
	e.publish(ctx, domain.BidAccepted, id, caller, req.Amount)
	return nil
}

// GetItem is a direct lookup with no side effects.
func (e *AuctionEngine) GetItem(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	item, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.AuctionNotFound
	}
	return item, nil
}

// ListActiveItems scans the whole store and keeps the open listings.
func (e *AuctionEngine) ListActiveItems(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	err := e.store.Iterate(ctx, func(_ domain.ItemID, item *domain.Item) bool {
		if item.IsActive {
			items = append(items, item)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CountItems counts every stored listing, active and closed.
func (e *AuctionEngine) CountItems(ctx context.Context) (uint64, error) {
	return e.store.Len(ctx)
}

// HighestSaleItem returns the item with the maximum amount across the
// whole store, the lowest id winning ties. Nil when the store is empty.
func (e *AuctionEngine) HighestSaleItem(ctx context.Context) (*domain.Item, error) {
	var best *domain.Item
	err := e.store.Iterate(ctx, func(_ domain.ItemID, item *domain.Item) bool {
		if best == nil || item.Amount > best.Amount {
			best = item
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

// MostBidItem returns the item with the longest bid ledger, the lowest
// id winning ties. Nil when the store is empty.
func (e *AuctionEngine) MostBidItem(ctx context.Context) (*domain.Item, error) {
	var best *domain.Item
	err := e.store.Iterate(ctx, func(_ domain.ItemID, item *domain.Item) bool {
		if best == nil || len(item.Bids) > len(best.Bids) {
			best = item
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

// publish emits an event on a best-effort basis. The store write has
// already succeeded, so a publish failure is logged, not returned.
func (e *AuctionEngine) publish(ctx context.Context, eventType domain.ItemEventType, id domain.ItemID, actor domain.Principal, amount uint64) {
	if e.eventPub == nil {
		return
	}
	event := &domain.ItemEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		ItemID:    id,
		Actor:     actor,
		Amount:    amount,
		Timestamp: time.Now(),
	}
	if err := e.eventPub.PublishItemEvent(ctx, event); err != nil {
		e.log.Error("Failed to publish item event", "type", eventType, "item_id", id, "error", err)
	}
}
