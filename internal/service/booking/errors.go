package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrResourceNotFound    = errors.New("venue not found")
	ErrResourceInactive    = errors.New("venue is not accepting bookings")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrInvalidEventType    = errors.New("unknown event type")
	ErrUserNotFound        = errors.New("user not found")
	ErrUnknownReference    = errors.New("reservation references an unknown record")
	ErrForbidden           = errors.New("forbidden")
	ErrReservationPaid     = errors.New("paid reservations cannot be rejected")
	ErrRateLimited         = errors.New("too many booking requests")
	ErrReportPeriod        = errors.New("month and year are required")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many booking requests, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e RateLimitedError) Is(target error) bool { return target == ErrRateLimited }
