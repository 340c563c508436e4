package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	domainbooking "staybook/internal/domain/booking"
)

const (
	codeExclusionViolation   = "23P01"
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapInsertError turns a lost race for the property's dates into ErrBookingConflict.
func mapInsertError(err error) error {
	switch pgCode(err) {
	case codeExclusionViolation, codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %w", domainbooking.ErrBookingConflict, err)
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", domainbooking.ErrConcurrentUpdate, err)
	}
	return err
}

func mapUpdateError(err error) error {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %w", domainbooking.ErrConcurrentUpdate, err)
	}
	return err
}
