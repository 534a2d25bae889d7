package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type postEventRequest struct {
	EventID  uuid.UUID      `json:"event_id"`
	ParentID uuid.UUID      `json:"parent_id"`
	Title    string         `json:"title"`
	StartsAt time.Time      `json:"starts_at"`
	EndsAt   time.Time      `json:"ends_at"`
	Capacity *int           `json:"capacity"`
	Price    entities.Money `json:"price"`
	IsFree   bool           `json:"is_free"`
}

type eventResponse struct {
	Event entities.EventNode `json:"event"`
	Pool  entities.PoolView  `json:"pool"`
}

func (h Handler) PostEvents(c echo.Context) error {
	var request postEventRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if request.StartsAt.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "starts_at is required")
	}
	if request.EndsAt.IsZero() {
		request.EndsAt = request.StartsAt
	}
	if request.Price.Currency == "" && !request.Price.IsZero() {
		request.Price.Currency = h.defaultCurrency
	}

	ctx := c.Request().Context()

	node, err := h.catalog.CreateEvent(ctx, allocation.NewEvent{
		ID:       request.EventID,
		ParentID: request.ParentID,
		Title:    request.Title,
		StartsAt: request.StartsAt,
		EndsAt:   request.EndsAt,
		Capacity: request.Capacity,
		Price:    request.Price,
		IsFree:   request.IsFree,
	})
	if err != nil {
		return toHTTPError(err)
	}

	pool, err := h.pools.ResolvePool(ctx, node.ID)
	if err != nil {
		return fmt.Errorf("could not resolve pool of created event: %w", err)
	}

	return c.JSON(http.StatusCreated, eventResponse{Event: node, Pool: pool})
}

func (h Handler) GetEvent(c echo.Context) error {
	nodeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	pool, err := h.pools.ResolvePool(c.Request().Context(), nodeID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, pool)
}
