package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/spreadsheets"
)

// SpreadsheetsAPIClient appends order rows to the tracking sheets.
type SpreadsheetsAPIClient struct {
	clients *clients.Clients
}

func NewSpreadsheetsAPIClient(c *clients.Clients) *SpreadsheetsAPIClient {
	if c == nil {
		panic("missing clients")
	}

	return &SpreadsheetsAPIClient{clients: c}
}

func (c *SpreadsheetsAPIClient) AppendRow(ctx context.Context, sheet string, row []string) error {
	body := spreadsheets.PostSheetsSheetRowsJSONRequestBody{Columns: row}

	resp, err := c.clients.Spreadsheets.PostSheetsSheetRowsWithResponse(ctx, sheet, body)
	if err != nil {
		return fmt.Errorf("could not append row to %s: %w", sheet, err)
	}
	if code := resp.StatusCode(); code != http.StatusOK && code != http.StatusCreated {
		return fmt.Errorf("could not append row to %s: status %d", sheet, code)
	}

	return nil
}
