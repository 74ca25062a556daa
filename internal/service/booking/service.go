package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/events"
	"github.com/kirinyoku/venue-go/internal/notify"
	"github.com/kirinyoku/venue-go/internal/repository"
	redisrepo "github.com/kirinyoku/venue-go/internal/repository/redis"
	"github.com/kirinyoku/venue-go/internal/service/order"
	"github.com/kirinyoku/venue-go/internal/uow"
)

type StatsInvalidator interface {
	Invalidate(ctx context.Context, resourceID int64)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, reservationID int64, kind notify.Kind) error
}

type RateLimiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

type Service struct {
	uow        *uow.UoW
	stats      StatsInvalidator
	dispatcher Dispatcher
	publisher  events.Publisher
	limiter    RateLimiter
	logger     *slog.Logger
	now        func() time.Time
}

// New wires the state machine. limiter may be nil to disable rate limiting.
func New(
	u *uow.UoW,
	stats StatsInvalidator,
	dispatcher Dispatcher,
	publisher events.Publisher,
	limiter RateLimiter,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:        u,
		stats:      stats,
		dispatcher: dispatcher,
		publisher:  publisher,
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
	}
}

type CreateInput struct {
	ResourceID  int64
	EventTypeID int64
	// UserID books on behalf of another user; operators only. Zero means the actor.
	UserID    int64
	StartDate time.Time
	EndDate   time.Time
	// StartTime and EndTime are optional "HH:MM" times of day.
	StartTime  string
	EndTime    string
	Selections domain.Selections
}

// Create admits a reservation when no conflict exists and prices its services.
// The conflict check, pricing and insert run under one resource lock inside a
// serializable transaction. Operator bookings are approved immediately and
// reject pending requests that share a day with them.
//
// Returns:
//   - error: domain.ConflictError on approved or pending overlap.
//   - error: order.InvalidSelectionError for services not on the venue's catalog.
//   - error: ErrInvalidDateRange, ErrInvalidEventType, ErrResourceNotFound, ErrResourceInactive.
//   - error: ErrUserNotFound when an operator books for a user that does not exist.
//   - error: ErrRateLimited, ErrForbidden.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (domain.Reservation, error) {
	const op = "service.booking.Create"

	owner := actor.UserID
	if in.UserID != 0 && in.UserID != actor.UserID {
		if !actor.IsOperator() {
			return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrForbidden)
		}
		owner = in.UserID
	}

	rng := domain.NewDateRange(in.StartDate, in.EndDate)
	if !rng.Valid() {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrInvalidDateRange)
	}

	startAt, endAt, err := timesOfDay(rng, in.StartTime, in.EndTime)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	if in.EventTypeID <= 0 {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrInvalidEventType)
	}

	if err := s.allow(ctx, actor); err != nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	approval := domain.ApprovalPending
	if actor.IsOperator() {
		approval = domain.ApprovalApproved
	}

	var created domain.Reservation

	err = s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, after func(uow.AfterCommit)) error {
		reservations := repos.Reservations()

		if err := reservations.LockResource(ctx, in.ResourceID); err != nil {
			return err
		}

		resource, err := repos.Catalog().GetResource(ctx, in.ResourceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrResourceNotFound
			}
			return err
		}
		if !resource.IsActive {
			return ErrResourceInactive
		}

		if ok, err := repos.Catalog().EventTypeExists(ctx, in.EventTypeID); err != nil {
			return err
		} else if !ok {
			return ErrInvalidEventType
		}
		if owner != actor.UserID {
			if ok, err := repos.Catalog().UserExists(ctx, owner); err != nil {
				return err
			} else if !ok {
				return ErrUserNotFound
			}
		}

		existing, err := reservations.ListActiveInRange(ctx, in.ResourceID, rng)
		if err != nil {
			return err
		}
		if err := domain.ConflictErr(existing, rng, 0); err != nil {
			return err
		}

		o, err := order.Compose(ctx, repos.Catalog(), in.ResourceID, in.Selections)
		if err != nil {
			return err
		}

		res := domain.Reservation{
			UserID:      owner,
			ResourceID:  in.ResourceID,
			EventTypeID: in.EventTypeID,
			Range:       rng,
			StartAt:     startAt,
			EndAt:       endAt,
			Services:    domain.Snapshot(o.Items),
			TotalCents:  o.TotalCents,
			Approval:    approval,
			Payment:     domain.PaymentUnpaid,
		}

		if err := reservations.Create(ctx, &res); err != nil {
			switch {
			case errors.Is(err, repository.ErrConflict):
				return domain.ConflictError{Kind: domain.RejectApprovedOverlap}
			case errors.Is(err, repository.ErrInvalidReference):
				return ErrUnknownReference
			}
			return err
		}

		var rejected []int64
		if res.IsApproved() {
			rejected, err = reservations.RejectPendingOverlapping(ctx, res.ResourceID, res.Range, res.ID)
			if err != nil {
				return err
			}
		}

		created = res

		after(func(ctx context.Context) {
			s.stats.Invalidate(ctx, res.ResourceID)
			s.publish(ctx, events.ReservationCreated, res)
			s.publishRejected(ctx, res, rejected)
		})

		return nil
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("reservation created",
		slog.Int64("reservation_id", created.ID),
		slog.Int64("resource_id", created.ResourceID),
		slog.String("approval", string(created.Approval)),
		slog.Int64("total_cents", created.TotalCents),
	)

	return created, nil
}

// SetApproval approves or rejects a reservation. Operators only.
//
// Approving re-checks that no other approved reservation shares a day, then
// rejects the pending requests that do and queues the approval notice.
// Approving an approved reservation changes nothing and sends nothing.
// Rejecting a paid reservation fails with ErrReservationPaid.
func (s *Service) SetApproval(ctx context.Context, actor domain.Actor, id int64, approve bool) (domain.Reservation, error) {
	const op = "service.booking.SetApproval"

	if !actor.IsOperator() {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	var updated domain.Reservation

	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, after func(uow.AfterCommit)) error {
		res, err := lockReservation(ctx, repos.Reservations(), id)
		if err != nil {
			return err
		}

		if approve {
			updated, err = s.approve(ctx, repos.Reservations(), res, after)
			return err
		}

		updated, err = s.reject(ctx, repos.Reservations(), res, after)
		return err
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	return updated, nil
}

func (s *Service) approve(
	ctx context.Context,
	reservations repository.Reservations,
	res domain.Reservation,
	after func(uow.AfterCommit),
) (domain.Reservation, error) {
	if res.IsApproved() {
		return res, nil
	}

	existing, err := reservations.ListActiveInRange(ctx, res.ResourceID, res.Range)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := domain.ApprovedOverlapErr(existing, res.Range, res.ID); err != nil {
		return domain.Reservation{}, err
	}

	if err := reservations.SetApproval(ctx, res.ID, domain.ApprovalApproved); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Reservation{}, domain.ConflictError{Kind: domain.RejectApprovedOverlap}
		}
		return domain.Reservation{}, err
	}

	rejected, err := reservations.RejectPendingOverlapping(ctx, res.ResourceID, res.Range, res.ID)
	if err != nil {
		return domain.Reservation{}, err
	}

	res.Approval = domain.ApprovalApproved
	res.UpdatedAt = s.now()

	after(func(ctx context.Context) {
		s.stats.Invalidate(ctx, res.ResourceID)
		s.notify(ctx, res.ID, notify.KindApproved)
		s.publish(ctx, events.ReservationApproved, res)
		s.publishRejected(ctx, res, rejected)
	})

	return res, nil
}

func (s *Service) reject(
	ctx context.Context,
	reservations repository.Reservations,
	res domain.Reservation,
	after func(uow.AfterCommit),
) (domain.Reservation, error) {
	if res.IsPaid() {
		return domain.Reservation{}, ErrReservationPaid
	}
	if res.Approval == domain.ApprovalRejected {
		return res, nil
	}

	if err := reservations.SetApproval(ctx, res.ID, domain.ApprovalRejected); err != nil {
		return domain.Reservation{}, err
	}

	res.Approval = domain.ApprovalRejected
	res.UpdatedAt = s.now()

	after(func(ctx context.Context) {
		s.stats.Invalidate(ctx, res.ResourceID)
		s.publish(ctx, events.ReservationRejected, res)
	})

	return res, nil
}

// Delete removes a reservation with its services and payment records. Operators only.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.booking.Delete"

	if !actor.IsOperator() {
		return fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, after func(uow.AfterCommit)) error {
		res, err := lockReservation(ctx, repos.Reservations(), id)
		if err != nil {
			return err
		}

		if err := repos.Reservations().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		after(func(ctx context.Context) {
			s.stats.Invalidate(ctx, res.ResourceID)
			s.publish(ctx, events.ReservationDeleted, res)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Get returns a reservation to its owner or an operator.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (domain.Reservation, error) {
	const op = "service.booking.Get"

	res, err := s.uow.Repos().Reservations().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
		}
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.IsOperator() && res.UserID != actor.UserID {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	return res, nil
}

// List pages through all reservations. Operators only.
func (s *Service) List(ctx context.Context, actor domain.Actor, f domain.ReservationFilter) (domain.ReservationPage, error) {
	const op = "service.booking.List"

	if !actor.IsOperator() {
		return domain.ReservationPage{}, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	page, err := s.uow.Repos().Reservations().List(ctx, f)
	if err != nil {
		return domain.ReservationPage{}, fmt.Errorf("%s:%w", op, err)
	}

	return page, nil
}

// ListByUser pages through one user's reservations. Users see only their own.
func (s *Service) ListByUser(
	ctx context.Context,
	actor domain.Actor,
	userID int64,
	f domain.ReservationFilter,
) (domain.ReservationPage, error) {
	const op = "service.booking.ListByUser"

	if !actor.IsOperator() && actor.UserID != userID {
		return domain.ReservationPage{}, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	f.UserID = &userID

	page, err := s.uow.Repos().Reservations().List(ctx, f)
	if err != nil {
		return domain.ReservationPage{}, fmt.Errorf("%s:%w", op, err)
	}

	return page, nil
}

// Export returns the rows of the monthly booking report. Operators only; the
// month and year are mandatory, resource and search narrow it further.
func (s *Service) Export(ctx context.Context, actor domain.Actor, f domain.ReservationFilter) ([]domain.ReservationReportRow, error) {
	const op = "service.booking.Export"

	if !actor.IsOperator() {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}
	if f.Year <= 0 || f.Month < 1 || f.Month > 12 {
		return nil, fmt.Errorf("%s:%w", op, ErrReportPeriod)
	}
	f.UserID = nil

	rows, err := s.uow.Repos().Reservations().ReportRows(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return rows, nil
}

// lockReservation takes the resource lock and then the row lock, in that
// order, so it cannot deadlock against Create on the same resource.
func lockReservation(ctx context.Context, reservations repository.Reservations, id int64) (domain.Reservation, error) {
	cur, err := reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, ErrReservationNotFound
		}
		return domain.Reservation{}, err
	}

	if err := reservations.LockResource(ctx, cur.ResourceID); err != nil {
		return domain.Reservation{}, err
	}

	res, err := reservations.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, ErrReservationNotFound
		}
		return domain.Reservation{}, err
	}

	return res, nil
}

func (s *Service) allow(ctx context.Context, actor domain.Actor) error {
	if s.limiter == nil || actor.IsOperator() {
		return nil
	}

	d, err := s.limiter.Allow(ctx, strconv.FormatInt(actor.UserID, 10))
	if err != nil {
		return err
	}
	if !d.Allowed {
		return RateLimitedError{RetryAfter: d.RetryAfter}
	}

	return nil
}

func (s *Service) notify(ctx context.Context, reservationID int64, kind notify.Kind) {
	if err := s.dispatcher.Dispatch(ctx, reservationID, kind); err != nil {
		s.logger.Error("notification enqueue failed",
			slog.Int64("reservation_id", reservationID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) publish(ctx context.Context, typ string, res domain.Reservation) {
	if err := s.publisher.Publish(ctx, events.ForReservation(typ, res, s.now())); err != nil {
		s.logger.Warn("event publish failed",
			slog.String("type", typ),
			slog.Int64("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) publishRejected(ctx context.Context, winner domain.Reservation, ids []int64) {
	for _, id := range ids {
		s.publish(ctx, events.ReservationRejected, domain.Reservation{
			ID:         id,
			ResourceID: winner.ResourceID,
			Range:      winner.Range,
			Approval:   domain.ApprovalRejected,
		})
	}
}

// timesOfDay combines the range's boundary days with optional "HH:MM" times.
// Both or neither must be given; a same-day booking must end after it starts.
func timesOfDay(rng domain.DateRange, start, end string) (*time.Time, *time.Time, error) {
	if start == "" && end == "" {
		return nil, nil, nil
	}
	if start == "" || end == "" {
		return nil, nil, ErrInvalidDateRange
	}

	st, err := time.Parse("15:04", start)
	if err != nil {
		return nil, nil, ErrInvalidDateRange
	}
	et, err := time.Parse("15:04", end)
	if err != nil {
		return nil, nil, ErrInvalidDateRange
	}

	startAt := rng.Start.Add(time.Duration(st.Hour())*time.Hour + time.Duration(st.Minute())*time.Minute)
	endAt := rng.End.Add(time.Duration(et.Hour())*time.Hour + time.Duration(et.Minute())*time.Minute)
	if !endAt.After(startAt) {
		return nil, nil, ErrInvalidDateRange
	}

	return &startAt, &endAt, nil
}
