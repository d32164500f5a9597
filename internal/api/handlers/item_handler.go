package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"auction-ledger/internal/api/middleware"
	"auction-ledger/internal/domain"
	"auction-ledger/internal/services"
	"auction-ledger/pkg/logger"

	"github.com/labstack/echo/v4"
)

type ItemHandler struct {
	engine *services.AuctionEngine
	stats  *services.StatsService
	log    logger.Logger
}

func NewItemHandler(engine *services.AuctionEngine, stats *services.StatsService, log logger.Logger) *ItemHandler {
	return &ItemHandler{
		engine: engine,
		stats:  stats,
		log:    log,
	}
}

func (h *ItemHandler) Register(g *echo.Group) {
	g.GET("/items/active", h.ListActiveItems)
	g.GET("/items/count", h.CountItems)
	g.GET("/items/highest-sale", h.HighestSaleItem)
	g.GET("/items/most-bid", h.MostBidItem)
	g.GET("/items/:id", h.GetItem)
	g.GET("/stats", h.Stats)

	mutating := g.Group("", middleware.Identity())
	mutating.POST("/items/:id", h.CreateItem)
	mutating.PUT("/items/:id", h.EditItem)
	mutating.POST("/items/:id/close", h.EndItem)
	mutating.POST("/items/:id/bids", h.PlaceBid)
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	item, err := h.engine.GetItem(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) ListActiveItems(c echo.Context) error {
	items, err := h.engine.ListActiveItems(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}
	if items == nil {
		items = []*domain.Item{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) CountItems(c echo.Context) error {
	count, err := h.engine.CountItems(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{"count": count})
}

func (h *ItemHandler) HighestSaleItem(c echo.Context) error {
	item, err := h.engine.HighestSaleItem(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}
	if item == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no items stored"})
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) MostBidItem(c echo.Context) error {
	item, err := h.engine.MostBidItem(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}
	if item == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no items stored"})
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) Stats(c echo.Context) error {
	snapshot, err := h.stats.Snapshot(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to produce stats snapshot", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	var draft domain.ItemDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	caller := middleware.CallerFromContext(c)
	item, err := h.engine.CreateItem(c.Request().Context(), caller, id, draft)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) EditItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	var draft domain.ItemDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	caller := middleware.CallerFromContext(c)
	if err := h.engine.EditItem(c.Request().Context(), caller, id, draft); err != nil {
		return h.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) EndItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	caller := middleware.CallerFromContext(c)
	if err := h.engine.EndItem(c.Request().Context(), caller, id); err != nil {
		return h.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) PlaceBid(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	var req domain.BidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	caller := middleware.CallerFromContext(c)
	if err := h.engine.PlaceBid(c.Request().Context(), caller, id, req); err != nil {
		return h.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func itemID(c echo.Context) (domain.ItemID, error) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.ItemID(raw), nil
}

func (h *ItemHandler) renderError(c echo.Context, err error) error {
	var auctionErr domain.AuctionError
	if errors.As(err, &auctionErr) {
		return c.JSON(auctionStatus(auctionErr), map[string]string{"error": auctionErr.Error()})
	}

	var bidErr domain.BidError
	if errors.As(err, &bidErr) {
		return c.JSON(bidStatus(bidErr), map[string]string{"error": bidErr.Error()})
	}

	h.log.Error("Unexpected error", "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func auctionStatus(err domain.AuctionError) int {
	switch err {
	case domain.AuctionNotFound:
		return http.StatusNotFound
	case domain.AuctionAccessRejected:
		return http.StatusForbidden
	case domain.AuctionNotActive, domain.AuctionDuplicateItem, domain.AuctionExpired, domain.AuctionInvalidChoice:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bidStatus(err domain.BidError) int {
	switch err {
	case domain.BidItemNotFound:
		return http.StatusNotFound
	case domain.BidAmountLessThanCurrent, domain.BidAuctionNotActive,
		domain.BidOwnerIsNotValid, domain.BidExpired, domain.BidReachMax, domain.BidInvalidChoice:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
