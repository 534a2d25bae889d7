package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	// reserveCapacity decrements in a single conditional statement, no row is returned
	// when there are not enough tickets left or the pool is unlimited.
	reserveCapacity = `
		UPDATE
			capacity_records
		SET
			tickets_left = tickets_left - $2,
			sold_out = tickets_left - $2 <= 0
		WHERE
			event_id = $1
			AND total_capacity <> -1
			AND tickets_left >= $2
		RETURNING
			event_id, total_capacity, tickets_left, sold_out
	`

	releaseCapacity = `
		UPDATE
			capacity_records
		SET
			tickets_left = LEAST(total_capacity, tickets_left + $2),
			sold_out = LEAST(total_capacity, tickets_left + $2) <= 0
		WHERE
			event_id = $1
			AND total_capacity <> -1
		RETURNING
			event_id, total_capacity, tickets_left, sold_out
	`

	selectCapacity = `
		SELECT
			event_id, total_capacity, tickets_left, sold_out
		FROM
			capacity_records
		WHERE
			event_id = $1
	`
)

func (s *Store) CapacityRecord(ctx context.Context, ownerID uuid.UUID) (entities.CapacityRecord, error) {
	return capacityRecord(ctx, s.db.Conn, ownerID)
}

func (s *Store) Reserve(ctx context.Context, ownerID uuid.UUID, quantity int) (entities.CapacityRecord, error) {
	if quantity < 1 {
		return entities.CapacityRecord{}, entities.InvalidQuantityError{Quantity: quantity}
	}

	var record entities.CapacityRecord
	err := s.db.Conn.GetContext(ctx, &record, reserveCapacity, ownerID, quantity)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return entities.CapacityRecord{}, fmt.Errorf("could not reserve tickets: %w", err)
	}

	record, err = capacityRecord(ctx, s.db.Conn, ownerID)
	if err != nil {
		return entities.CapacityRecord{}, err
	}
	if record.Unlimited() {
		return record, nil
	}

	return record, entities.InsufficientCapacityError{
		PoolOwnerID: ownerID,
		Requested:   quantity,
		Available:   record.TicketsLeft,
	}
}

func (s *Store) Release(ctx context.Context, ownerID uuid.UUID, quantity int) (entities.CapacityRecord, error) {
	if quantity < 1 {
		return entities.CapacityRecord{}, entities.InvalidQuantityError{Quantity: quantity}
	}

	return releaseTickets(ctx, s.db.Conn, ownerID, quantity)
}

func releaseTickets(ctx context.Context, q sqlx.QueryerContext, ownerID uuid.UUID, quantity int) (entities.CapacityRecord, error) {
	var record entities.CapacityRecord
	err := sqlx.GetContext(ctx, q, &record, releaseCapacity, ownerID, quantity)
	if errors.Is(err, sql.ErrNoRows) {
		// unlimited pools are not touched
		return capacityRecord(ctx, q, ownerID)
	}
	if err != nil {
		return entities.CapacityRecord{}, fmt.Errorf("could not release tickets: %w", err)
	}

	return record, nil
}

func capacityRecord(ctx context.Context, q sqlx.QueryerContext, ownerID uuid.UUID) (entities.CapacityRecord, error) {
	var record entities.CapacityRecord
	err := sqlx.GetContext(ctx, q, &record, selectCapacity, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.CapacityRecord{}, entities.NodeNotFoundError{NodeID: ownerID}
	}
	if err != nil {
		return entities.CapacityRecord{}, fmt.Errorf("could not get capacity record: %w", err)
	}

	return record, nil
}
