package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrConflict = errors.New("reservation conflict")

// DateRange is an inclusive span of calendar days. Times are truncated to UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateDay(start), End: truncateDay(end)}
}

func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// OverlapsInclusive treats shared boundary days as overlapping.
func (r DateRange) OverlapsInclusive(o DateRange) bool {
	return !r.Start.After(o.End) && !r.End.Before(o.Start)
}

// OverlapsStrict ignores ranges that only touch at a boundary day.
func (r DateRange) OverlapsStrict(o DateRange) bool {
	return r.Start.Before(o.End) && r.End.After(o.Start)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type ConflictKind int

const (
	Admit ConflictKind = iota
	RejectApprovedOverlap
	RejectPendingOverlap
)

func (k ConflictKind) String() string {
	switch k {
	case RejectApprovedOverlap:
		return "approved_overlap"
	case RejectPendingOverlap:
		return "pending_overlap"
	default:
		return "admit"
	}
}

// ConflictError reports why a date range was not admitted.
type ConflictError struct {
	Kind          ConflictKind
	ReservationID int64
}

func (e ConflictError) Error() string {
	switch e.Kind {
	case RejectApprovedOverlap:
		return fmt.Sprintf("an approved booking already exists on these dates (reservation %d)", e.ReservationID)
	case RejectPendingOverlap:
		return fmt.Sprintf("booking overlaps with an existing pending request (reservation %d)", e.ReservationID)
	default:
		return "conflict"
	}
}

func (e ConflictError) Is(target error) bool { return target == ErrConflict }

// CheckConflict decides whether candidate may be admitted next to existing.
// Approved reservations block on inclusive overlap; pending ones only on
// strict overlap so requests may queue at shared boundaries. Rejected
// reservations and exceptID are ignored.
func CheckConflict(existing []Reservation, candidate DateRange, exceptID int64) (ConflictKind, int64) {
	for _, r := range existing {
		if r.ID == exceptID || r.Approval != ApprovalApproved {
			continue
		}
		if r.Range.OverlapsInclusive(candidate) {
			return RejectApprovedOverlap, r.ID
		}
	}

	for _, r := range existing {
		if r.ID == exceptID || r.Approval != ApprovalPending {
			continue
		}
		if r.Range.OverlapsStrict(candidate) {
			return RejectPendingOverlap, r.ID
		}
	}

	return Admit, 0
}

// ConflictErr wraps CheckConflict into an error, nil on admit.
func ConflictErr(existing []Reservation, candidate DateRange, exceptID int64) error {
	kind, id := CheckConflict(existing, candidate, exceptID)
	if kind == Admit {
		return nil
	}
	return ConflictError{Kind: kind, ReservationID: id}
}

// ApprovedOverlapErr reports an approved reservation other than exceptID whose
// range overlaps r inclusively. Pending reservations are ignored.
func ApprovedOverlapErr(existing []Reservation, r DateRange, exceptID int64) error {
	for _, other := range existing {
		if other.ID == exceptID || !other.IsApproved() {
			continue
		}
		if other.Range.OverlapsInclusive(r) {
			return ConflictError{Kind: RejectApprovedOverlap, ReservationID: other.ID}
		}
	}
	return nil
}
