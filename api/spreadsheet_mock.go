package api

import (
	"context"
	"sync"
)

type SpreadsheetsMock struct {
	lock sync.Mutex
	Rows map[string][][]string
}

func (c *SpreadsheetsMock) AppendRow(ctx context.Context, sheetName string, row []string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.Rows == nil {
		c.Rows = make(map[string][][]string)
	}
	c.Rows[sheetName] = append(c.Rows[sheetName], row)

	return nil
}

func (c *SpreadsheetsMock) RowsIn(sheetName string) [][]string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([][]string(nil), c.Rows[sheetName]...)
}
