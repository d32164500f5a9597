package domain

// The two mutating surfaces have disjoint error taxonomies. Reserved
// variants (Expired, InvalidChoice, ReachMax) are kept for forward
// compatibility with future rules such as time-based expiry.

type AuctionError int

const (
	AuctionUpdateError AuctionError = iota + 1
	AuctionNotFound
	AuctionNotActive
	AuctionExpired
	AuctionAccessRejected
	AuctionInvalidChoice
	AuctionDuplicateItem
)

func (e AuctionError) Error() string {
	switch e {
	case AuctionUpdateError:
		return "update_error"
	case AuctionNotFound:
		return "no_such_auction"
	case AuctionNotActive:
		return "auction_is_not_active"
	case AuctionExpired:
		return "expired"
	case AuctionAccessRejected:
		return "access_rejected"
	case AuctionInvalidChoice:
		return "invalid_choice"
	case AuctionDuplicateItem:
		return "duplicate_item"
	default:
		return "unknown_auction_error"
	}
}

type BidError int

const (
	BidAmountLessThanCurrent BidError = iota + 1
	BidUpdateError
	BidItemNotFound
	BidAuctionNotActive
	BidExpired
	BidReachMax
	BidInvalidChoice
	BidOwnerIsNotValid
)

func (e BidError) Error() string {
	switch e {
	case BidAmountLessThanCurrent:
		return "bid_amount_less_than_current"
	case BidUpdateError:
		return "update_error"
	case BidItemNotFound:
		return "no_such_item"
	case BidAuctionNotActive:
		return "auction_is_not_active"
	case BidExpired:
		return "expired"
	case BidReachMax:
		return "reach_max_bid"
	case BidInvalidChoice:
		return "invalid_choice"
	case BidOwnerIsNotValid:
		return "owner_is_not_valid"
	default:
		return "unknown_bid_error"
	}
}
