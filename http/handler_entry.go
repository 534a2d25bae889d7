package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type verifyRequest struct {
	EntryCode   string    `json:"entry_code"`
	PoolOwnerID uuid.UUID `json:"pool_owner_id"`
}

func (h Handler) PostEntryVerify(c echo.Context) error {
	var request verifyRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.EntryCode == "" || request.PoolOwnerID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "entry_code and pool_owner_id are required")
	}

	verification, err := h.verifier.Verify(c.Request().Context(), request.EntryCode, request.PoolOwnerID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, verification)
}
