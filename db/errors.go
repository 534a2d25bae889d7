package db

import (
	"errors"

	"github.com/lib/pq"
)

const (
	postgresUniqueValueViolationErrorCode = "23505"

	ticketsActiveEntryCodeConstraint = "tickets_active_entry_code_idx"
	ticketsOrderSeqConstraint        = "tickets_order_id_seq_key"
)

func isErrorUniqueViolation(err error) bool {
	var psqlErr *pq.Error
	return errors.As(err, &psqlErr) && psqlErr.Code == postgresUniqueValueViolationErrorCode
}

func uniqueViolationConstraint(err error) string {
	var psqlErr *pq.Error
	if !errors.As(err, &psqlErr) || psqlErr.Code != postgresUniqueValueViolationErrorCode {
		return ""
	}
	return psqlErr.Constraint
}
