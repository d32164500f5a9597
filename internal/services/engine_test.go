package services

import (
	"context"
	"errors"
	"testing"

	"auction-ledger/internal/domain"
	"auction-ledger/internal/infrastructure/memory"
	"auction-ledger/pkg/logger"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

const (
	alice domain.Principal = "alice"
	bob   domain.Principal = "bob"
	carol domain.Principal = "carol"
)

func newTestEngine() *AuctionEngine {
	return NewAuctionEngine(memory.NewItemStore(5000), nil, logger.NewNop())
}

func activeDraft(title string) domain.ItemDraft {
	return domain.ItemDraft{
		Title:       title,
		Description: "test listing",
		Currency:    "ICP",
		IsActive:    true,
		StartTime:   "2026-01-01T00:00:00Z",
		EndTime:     "2026-02-01T00:00:00Z",
	}
}

func TestCreateItem_SetsOwnershipAndDefaults(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	item, err := engine.CreateItem(ctx, alice, 1, activeDraft("vintage synth"))
	assert.NoError(t, err)

	check.Equal(t, alice, item.Owner)
	check.Equal(t, domain.Anonymous, item.NewOwner)
	check.Equal(t, uint64(0), item.Amount)
	check.Equal(t, 0, len(item.Bids))
	check.True(t, item.IsActive)

	stored, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.Equal(t, "vintage synth", stored.Title)
}

func TestCreateItem_DuplicateID(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("first"))
	assert.NoError(t, err)

	_, err = engine.CreateItem(ctx, bob, 1, activeDraft("second"))
	check.Equal[error](t, domain.AuctionDuplicateItem, err)

	// The original listing is untouched.
	stored, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.Equal(t, "first", stored.Title)
	check.Equal(t, alice, stored.Owner)
}

func TestPlaceBid_Flow(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("item one"))
	assert.NoError(t, err)

	// Bid above the current amount is accepted.
	err = engine.PlaceBid(ctx, bob, 1, domain.BidRequest{Amount: 10, Currency: "ICP"})
	check.NoError(t, err)

	item, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.Equal(t, uint64(10), item.Amount)

	// Bid below the current amount is rejected.
	err = engine.PlaceBid(ctx, carol, 1, domain.BidRequest{Amount: 5, Currency: "ICP"})
	check.Equal[error](t, domain.BidAmountLessThanCurrent, err)

	// The owner cannot bid on their own listing.
	err = engine.PlaceBid(ctx, alice, 1, domain.BidRequest{Amount: 20, Currency: "ICP"})
	check.Equal[error](t, domain.BidOwnerIsNotValid, err)

	// Rejections left the ledger unchanged.
	item, err = engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.Equal(t, uint64(10), item.Amount)
	check.Equal(t, 1, len(item.Bids))
}

func TestPlaceBid_UnknownItem(t *testing.T) {
	engine := newTestEngine()

	err := engine.PlaceBid(context.Background(), bob, 42, domain.BidRequest{Amount: 10})
	check.Equal[error](t, domain.BidItemNotFound, err)
}

func TestPlaceBid_MonotonicAmount(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("item"))
	assert.NoError(t, err)

	amounts := []uint64{3, 7, 8, 20}
	for _, amount := range amounts {
		err := engine.PlaceBid(ctx, bob, 1, domain.BidRequest{Amount: amount, Currency: "ICP"})
		assert.NoError(t, err)

		item, err := engine.GetItem(ctx, 1)
		assert.NoError(t, err)
		check.Equal(t, amount, item.Amount)
	}

	// An equal amount is not strictly greater and must be rejected.
	err = engine.PlaceBid(ctx, carol, 1, domain.BidRequest{Amount: 20, Currency: "ICP"})
	check.Equal[error](t, domain.BidAmountLessThanCurrent, err)

	item, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.Equal(t, len(amounts), len(item.Bids))
	for _, b := range item.Bids {
		check.NotEqual(t, item.Owner, b.Owner)
	}
}

func TestEndItem_NoBids(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 2, activeDraft("unwanted"))
	assert.NoError(t, err)

	err = engine.EndItem(ctx, alice, 2)
	check.NoError(t, err)

	item, err := engine.GetItem(ctx, 2)
	assert.NoError(t, err)
	check.False(t, item.IsActive)
	check.Equal(t, domain.Anonymous, item.NewOwner)
}

func TestEndItem_WinnerIsHighestBidder(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 3, activeDraft("contested"))
	assert.NoError(t, err)

	check.NoError(t, engine.PlaceBid(ctx, bob, 3, domain.BidRequest{Amount: 10, Currency: "ICP"}))
	check.NoError(t, engine.PlaceBid(ctx, carol, 3, domain.BidRequest{Amount: 15, Currency: "ICP"}))
	check.NoError(t, engine.PlaceBid(ctx, bob, 3, domain.BidRequest{Amount: 20, Currency: "ICP"}))

	err = engine.EndItem(ctx, alice, 3)
	check.NoError(t, err)

	item, err := engine.GetItem(ctx, 3)
	assert.NoError(t, err)
	check.Equal(t, bob, item.NewOwner)
	check.Equal(t, uint64(20), item.Amount)
	check.Equal(t, 3, len(item.Bids))
}

func TestWinningBidder_TieKeepsEarliestBid(t *testing.T) {
	// Equal amounts cannot arise through PlaceBid, but the close
	// transition must still resolve them deterministically.
	bids := []domain.Bid{
		{Owner: bob, Amount: 10},
		{Owner: carol, Amount: 10},
		{Owner: carol, Amount: 7},
	}
	check.Equal(t, bob, winningBidder(bids))
	check.Equal(t, domain.Anonymous, winningBidder(nil))
}

func TestEndItem_OneWayClose(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("item"))
	assert.NoError(t, err)
	assert.NoError(t, engine.EndItem(ctx, alice, 1))

	// Bids after close are rejected, never queued.
	err = engine.PlaceBid(ctx, bob, 1, domain.BidRequest{Amount: 10, Currency: "ICP"})
	check.Equal[error](t, domain.BidAuctionNotActive, err)

	// The close transition cannot run twice.
	err = engine.EndItem(ctx, alice, 1)
	check.Equal[error](t, domain.AuctionNotActive, err)

	item, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.False(t, item.IsActive)
}

func TestEndItem_AccessControl(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("item"))
	assert.NoError(t, err)

	err = engine.EndItem(ctx, bob, 1)
	check.Equal[error](t, domain.AuctionAccessRejected, err)

	item, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.True(t, item.IsActive)
}

func TestEndItem_UnknownItem(t *testing.T) {
	engine := newTestEngine()

	err := engine.EndItem(context.Background(), alice, 42)
	check.Equal[error](t, domain.AuctionNotFound, err)
}

func TestEditItem_ReplacesDraftFieldsOnly(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("before"))
	assert.NoError(t, err)
	assert.NoError(t, engine.PlaceBid(ctx, bob, 1, domain.BidRequest{Amount: 10, Currency: "ICP"}))

	draft := activeDraft("after")
	draft.Currency = "BTC"
	err = engine.EditItem(ctx, alice, 1, draft)
	check.NoError(t, err)

	item, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.Equal(t, "after", item.Title)
	check.Equal(t, "BTC", item.Currency)

	// Amount, bid ledger and ownership survive the edit.
	check.Equal(t, uint64(10), item.Amount)
	check.Equal(t, 1, len(item.Bids))
	check.Equal(t, alice, item.Owner)
	check.Equal(t, domain.Anonymous, item.NewOwner)
}

func TestEditItem_RejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("original"))
	assert.NoError(t, err)

	err = engine.EditItem(ctx, bob, 1, activeDraft("hijacked"))
	check.Equal[error](t, domain.AuctionAccessRejected, err)

	item, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.Equal(t, "original", item.Title)
}

func TestEditItem_CannotCloseViaEdit(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("item"))
	assert.NoError(t, err)

	draft := activeDraft("item")
	draft.IsActive = false
	err = engine.EditItem(ctx, alice, 1, draft)
	check.Equal[error](t, domain.AuctionNotActive, err)

	item, err := engine.GetItem(ctx, 1)
	assert.NoError(t, err)
	check.True(t, item.IsActive)
}

func TestEditItem_UnknownItem(t *testing.T) {
	engine := newTestEngine()

	err := engine.EditItem(context.Background(), alice, 42, activeDraft("ghost"))
	check.Equal[error](t, domain.AuctionNotFound, err)
}

func TestGetItem_UnknownItem(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.GetItem(context.Background(), 42)
	check.Equal[error](t, domain.AuctionNotFound, err)
}

func TestQueries_EmptyStore(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	count, err := engine.CountItems(ctx)
	check.NoError(t, err)
	check.Equal(t, uint64(0), count)

	highest, err := engine.HighestSaleItem(ctx)
	check.NoError(t, err)
	check.Nil(t, highest)

	mostBid, err := engine.MostBidItem(ctx)
	check.NoError(t, err)
	check.Nil(t, mostBid)

	active, err := engine.ListActiveItems(ctx)
	check.NoError(t, err)
	check.Equal(t, 0, len(active))
}

func TestQueries_DerivedViews(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	// Item 1: no bids. Item 2: three bids. Item 3: one big bid, closed.
	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("quiet"))
	assert.NoError(t, err)
	_, err = engine.CreateItem(ctx, alice, 2, activeDraft("busy"))
	assert.NoError(t, err)
	_, err = engine.CreateItem(ctx, bob, 3, activeDraft("expensive"))
	assert.NoError(t, err)

	assert.NoError(t, engine.PlaceBid(ctx, bob, 2, domain.BidRequest{Amount: 1, Currency: "ICP"}))
	assert.NoError(t, engine.PlaceBid(ctx, carol, 2, domain.BidRequest{Amount: 2, Currency: "ICP"}))
	assert.NoError(t, engine.PlaceBid(ctx, bob, 2, domain.BidRequest{Amount: 3, Currency: "ICP"}))
	assert.NoError(t, engine.PlaceBid(ctx, carol, 3, domain.BidRequest{Amount: 100, Currency: "ICP"}))
	assert.NoError(t, engine.EndItem(ctx, bob, 3))

	count, err := engine.CountItems(ctx)
	check.NoError(t, err)
	check.Equal(t, uint64(3), count)

	active, err := engine.ListActiveItems(ctx)
	check.NoError(t, err)
	check.Equal(t, 2, len(active))
	for _, item := range active {
		check.True(t, item.IsActive)
	}

	highest, err := engine.HighestSaleItem(ctx)
	check.NoError(t, err)
	assert.NotNil(t, highest)
	check.Equal(t, domain.ItemID(3), highest.ID)
	check.Equal(t, uint64(100), highest.Amount)

	mostBid, err := engine.MostBidItem(ctx)
	check.NoError(t, err)
	assert.NotNil(t, mostBid)
	check.Equal(t, domain.ItemID(2), mostBid.ID)
	check.Equal(t, 3, len(mostBid.Bids))
}

// failingStore wraps a working store but fails every Insert, to drive
// the UpdateError paths.
type failingStore struct {
	domain.ItemStore
}

func (s *failingStore) Insert(ctx context.Context, id domain.ItemID, item *domain.Item) (*domain.Item, error) {
	return nil, errors.New("write rejected")
}

// forgetfulStore reports no previous value on Insert, the store-level
// signal the engine must surface as UpdateError on update paths.
type forgetfulStore struct {
	domain.ItemStore
}

func (s *forgetfulStore) Insert(ctx context.Context, id domain.ItemID, item *domain.Item) (*domain.Item, error) {
	return nil, nil
}

func TestMutations_StoreWriteFailure(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewItemStore(5000)

	seeded := NewAuctionEngine(backing, nil, logger.NewNop())
	_, err := seeded.CreateItem(ctx, alice, 1, activeDraft("item"))
	assert.NoError(t, err)

	engine := NewAuctionEngine(&failingStore{ItemStore: backing}, nil, logger.NewNop())

	_, err = engine.CreateItem(ctx, bob, 2, activeDraft("new"))
	check.Equal[error](t, domain.AuctionUpdateError, err)

	check.Equal[error](t, domain.AuctionUpdateError, engine.EditItem(ctx, alice, 1, activeDraft("edited")))
	check.Equal[error](t, domain.AuctionUpdateError, engine.EndItem(ctx, alice, 1))
	check.Equal[error](t, domain.BidUpdateError, engine.PlaceBid(ctx, bob, 1, domain.BidRequest{Amount: 10}))
}

func TestMutations_MissingPreviousValue(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewItemStore(5000)

	seeded := NewAuctionEngine(backing, nil, logger.NewNop())
	_, err := seeded.CreateItem(ctx, alice, 1, activeDraft("item"))
	assert.NoError(t, err)

	engine := NewAuctionEngine(&forgetfulStore{ItemStore: backing}, nil, logger.NewNop())

	check.Equal[error](t, domain.AuctionUpdateError, engine.EditItem(ctx, alice, 1, activeDraft("edited")))
	check.Equal[error](t, domain.AuctionUpdateError, engine.EndItem(ctx, alice, 1))
	check.Equal[error](t, domain.BidUpdateError, engine.PlaceBid(ctx, bob, 1, domain.BidRequest{Amount: 10}))
}

// capturingPublisher records events instead of pushing them to Redis.
type capturingPublisher struct {
	events []*domain.ItemEvent
}

func (p *capturingPublisher) PublishItemEvent(ctx context.Context, event *domain.ItemEvent) error {
	p.events = append(p.events, event)
	return nil
}

func TestEngine_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := &capturingPublisher{}
	engine := NewAuctionEngine(memory.NewItemStore(5000), pub, logger.NewNop())

	_, err := engine.CreateItem(ctx, alice, 1, activeDraft("item"))
	assert.NoError(t, err)
	assert.NoError(t, engine.PlaceBid(ctx, bob, 1, domain.BidRequest{Amount: 10, Currency: "ICP"}))

	// A rejected bid publishes nothing.
	engine.PlaceBid(ctx, carol, 1, domain.BidRequest{Amount: 5, Currency: "ICP"})

	assert.NoError(t, engine.EndItem(ctx, alice, 1))

	assert.Equal(t, 3, len(pub.events))
	check.Equal(t, domain.ItemListed, pub.events[0].Type)
	check.Equal(t, domain.BidAccepted, pub.events[1].Type)
	check.Equal(t, uint64(10), pub.events[1].Amount)
	check.Equal(t, bob, pub.events[1].Actor)
	check.Equal(t, domain.ItemClosed, pub.events[2].Type)
	for _, event := range pub.events {
		check.NotEqual(t, "", event.ID)
		check.Equal(t, domain.ItemID(1), event.ItemID)
	}
}
