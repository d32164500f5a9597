package domain

import (
	"time"
)

// Principal is an opaque caller identity supplied by the host
// environment. The engine never mints principals itself.
type Principal string

// Anonymous is the sentinel principal. It is never assigned to a real
// caller and is the value of NewOwner until an item is closed.
const Anonymous Principal = ""

func (p Principal) IsAnonymous() bool {
	return p == Anonymous
}

// ItemID is the caller-assigned key of a listing.
type ItemID uint64

// Item is a single auction listing. Amount always equals the amount of
// the highest accepted bid, or 0 when Bids is empty. NewOwner stays
// Anonymous while the item is active and is fixed exactly once on close.
type Item struct {
	ID          ItemID    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Owner       Principal `json:"owner"`
	NewOwner    Principal `json:"new_owner"`
	Currency    string    `json:"currency"`
	Amount      uint64    `json:"amount"`
	IsActive    bool      `json:"is_active"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Bids        []Bid     `json:"bids"`
}

// Bid is one accepted offer, recorded in the order it arrived.
type Bid struct {
	Owner    Principal `json:"owner"`
	Amount   uint64    `json:"amount"`
	Currency string    `json:"currency"`
	IsActive bool      `json:"is_active"`
}

// ItemDraft carries the caller-editable fields of a listing. The engine
// fills in everything else on create and preserves it on edit.
type ItemDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
	IsActive    bool   `json:"is_active"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type BidRequest struct {
	Amount   uint64 `json:"amount"`
	Currency string `json:"currency"`
}

type ItemEvent struct {
	ID        string        `json:"id"`
	Type      ItemEventType `json:"type"`
	ItemID    ItemID        `json:"item_id"`
	Actor     Principal     `json:"actor"`
	Amount    uint64        `json:"amount"`
	Timestamp time.Time     `json:"timestamp"`
}

type ItemEventType string

const (
	ItemListed  ItemEventType = "item_listed"
	ItemEdited  ItemEventType = "item_edited"
	ItemClosed  ItemEventType = "item_closed"
	BidAccepted ItemEventType = "bid_accepted"
)

// StatsSnapshot is the periodically refreshed aggregate view over the
// whole store. It is a read-model cache; the query operations always
// derive these facts from the store directly.
type StatsSnapshot struct {
	ItemCount      uint64    `json:"item_count"`
	ActiveCount    uint64    `json:"active_count"`
	HighestSaleID  ItemID    `json:"highest_sale_id"`
	HighestSale    uint64    `json:"highest_sale"`
	HasHighestSale bool      `json:"has_highest_sale"`
	MostBidID      ItemID    `json:"most_bid_id"`
	MostBidCount   int       `json:"most_bid_count"`
	HasMostBid     bool      `json:"has_most_bid"`
	RefreshedAt    time.Time `json:"refreshed_at"`
}
