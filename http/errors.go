package http

import (
	"errors"
	"net/http"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps allocation errors to responses. Unknown errors are returned
// as they are and end up as 500 in the echo error handler.
func toHTTPError(err error) error {
	var (
		insufficient     entities.InsufficientCapacityError
		nodeNotFound     entities.NodeNotFoundError
		invalidQuantity  entities.InvalidQuantityError
		invalidCapacity  entities.InvalidCapacityError
		invalidNode      entities.InvalidNodeError
		unauthorized     entities.UnauthorizedCancellationError
		windowClosed     entities.CancellationWindowClosedError
		alreadyCancelled entities.OrderAlreadyCancelledError
		paymentFailed    entities.PaymentFailedError
	)

	switch {
	case errors.As(err, &insufficient):
		return echo.NewHTTPError(http.StatusConflict, map[string]any{
			"message":       insufficient.Error(),
			"pool_owner_id": insufficient.PoolOwnerID,
			"requested":     insufficient.Requested,
			"available":     insufficient.Available,
		})
	case errors.As(err, &nodeNotFound),
		errors.Is(err, entities.ErrOrderNotFound),
		errors.Is(err, entities.ErrTicketNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &invalidQuantity),
		errors.As(err, &invalidCapacity),
		errors.As(err, &invalidNode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.As(err, &windowClosed):
		return echo.NewHTTPError(http.StatusConflict, map[string]any{
			"message":   windowClosed.Error(),
			"starts_at": windowClosed.StartsAt,
			"cutoff":    windowClosed.Cutoff.String(),
		})
	case errors.As(err, &alreadyCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &paymentFailed):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	default:
		return err
	}
}
