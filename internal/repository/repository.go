package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/venue-go/internal/domain"
)

// Reservations is the availability index: reservations scoped by resource.
type Reservations interface {
	// LockResource serialises writers on one resource until the surrounding tx ends.
	LockResource(ctx context.Context, resourceID int64) error
	// ListActiveInRange returns pending and approved reservations whose
	// inclusive range touches r.
	ListActiveInRange(ctx context.Context, resourceID int64, r domain.DateRange) ([]domain.Reservation, error)
	Get(ctx context.Context, id int64) (domain.Reservation, error)
	GetForUpdate(ctx context.Context, id int64) (domain.Reservation, error)
	// Create inserts the reservation with its service snapshot and sets res.ID.
	Create(ctx context.Context, res *domain.Reservation) error
	SetApproval(ctx context.Context, id int64, status domain.ApprovalStatus) error
	SetPaid(ctx context.Context, id int64) error
	// RejectPendingOverlapping rejects pending reservations on the resource that
	// overlap r inclusively, except exceptID, and returns their ids.
	RejectPendingOverlapping(ctx context.Context, resourceID int64, r domain.DateRange, exceptID int64) ([]int64, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f domain.ReservationFilter) (domain.ReservationPage, error)
	ListStartingBetween(ctx context.Context, resourceID *int64, from, to time.Time) ([]domain.Reservation, error)
	// ReportRows returns every match of f, newest first, ignoring Limit and Offset.
	ReportRows(ctx context.Context, f domain.ReservationFilter) ([]domain.ReservationReportRow, error)
	Summary(ctx context.Context, id int64) (domain.ReservationSummary, error)
}

// Catalog is the read side of the reference data a reservation points at:
// resources, their service line items, event types and users.
type Catalog interface {
	GetResource(ctx context.Context, id int64) (domain.Resource, error)
	EventTypeExists(ctx context.Context, id int64) (bool, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	// ServiceItems returns the items among ids that belong to resourceID.
	ServiceItems(ctx context.Context, resourceID int64, ids []int64) ([]domain.ServiceLineItem, error)
}

type Payments interface {
	Create(ctx context.Context, rec *domain.PaymentRecord) error
	GetByRef(ctx context.Context, provider domain.PaymentProvider, ref string) (domain.PaymentRecord, error)
	CompletedFor(ctx context.Context, reservationID int64) (domain.PaymentRecord, bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, transactionID string) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos interface {
	Reservations() Reservations
	Catalog() Catalog
	Payments() Payments
}

// TxRunner runs fn in a serializable transaction. Errors from fn roll back.
// Serialization failures surface as ErrSerialization.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
	Repos() Repos
}
