package db

import (
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
)

// Store is the PostgreSQL implementation of the allocation store.
type Store struct {
	db  *DB
	now func() time.Time
}

type StoreOption func(*Store)

// WithClock sets the time stamped on order state changes.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(db *DB, opts ...StoreOption) *Store {
	if db == nil {
		panic("db is nil")
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

var _ allocation.Store = (*Store)(nil)
