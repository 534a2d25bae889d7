package db

import (
	"context"
	"fmt"

	"github.com/george-bobby/eventtts-sap-sub000/message/event"
	"github.com/george-bobby/eventtts-sap-sub000/message/outbox"
	"github.com/jmoiron/sqlx"
)

// publishInTx stores events in the outbox table, they are forwarded once tx commits.
func publishInTx(ctx context.Context, tx *sqlx.Tx, events ...any) error {
	publisher, err := outbox.NewTxPublisher(ctx, tx)
	if err != nil {
		return err
	}

	bus, err := event.NewBus(publisher)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := bus.Publish(ctx, ev); err != nil {
			return fmt.Errorf("could not publish %T: %w", ev, err)
		}
	}

	return nil
}
