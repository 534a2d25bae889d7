package http

import (
	"net/http"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type checkoutRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutResponse struct {
	Order       entities.Order    `json:"order"`
	Tickets     []entities.Ticket `json:"tickets,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

type cancelResponse struct {
	Order            entities.Order        `json:"order"`
	PreviousState    entities.PaymentState `json:"previous_state"`
	TicketsLeft      int                   `json:"tickets_left"`
	TicketsCancelled int                   `json:"tickets_cancelled"`
}

func (h Handler) PostCheckout(c echo.Context) error {
	nodeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	var request checkoutRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	result, err := h.checkout.Checkout(c.Request().Context(), nodeID, userIDFromContext(c), request.Quantity)
	if err != nil {
		return toHTTPError(err)
	}

	status := http.StatusCreated
	if result.RedirectURL != "" {
		status = http.StatusAccepted
	}

	return c.JSON(status, checkoutResponse{
		Order:       result.Order,
		Tickets:     result.Tickets,
		RedirectURL: result.RedirectURL,
	})
}

func (h Handler) PostCancelOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	cancelled, err := h.cancellation.Cancel(c.Request().Context(), orderID, userIDFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, cancelResponse{
		Order:            cancelled.Order,
		PreviousState:    cancelled.PreviousState,
		TicketsLeft:      cancelled.Capacity.TicketsLeft,
		TicketsCancelled: cancelled.TicketsCancelled,
	})
}

func (h Handler) GetOrderTickets(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	ctx := c.Request().Context()

	order, err := h.orders.OrderByID(ctx, orderID)
	if err != nil {
		return toHTTPError(err)
	}
	if order.BuyerID != userIDFromContext(c) {
		// not leaking other buyers' orders
		return echo.NewHTTPError(http.StatusNotFound, entities.ErrOrderNotFound.Error())
	}

	tickets, err := h.orders.TicketsByOrder(ctx, orderID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, tickets)
}
