package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrFlightNotFound    = errors.New("flight not found")
	ErrCabinTypeNotFound = errors.New("cabin type not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrInvalidPassengers = errors.New("invalid passengers")
	ErrInvalidSchedule   = errors.New("invalid schedule")
	ErrEmptyFeed         = errors.New("feed has no header row")
)

// PersistenceError is a storage failure that aborted the whole operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
