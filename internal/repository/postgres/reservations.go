package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository"
)

const reservationColumns = `r.id, r.user_id, r.resource_id, r.event_type_id,
	r.start_date, r.end_date, r.start_at, r.end_at,
	r.total_cents, r.approval, r.payment, r.created_at, r.updated_at`

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// LockResource takes a transaction-scoped advisory lock keyed by resource id.
// Outside a transaction the lock is released as soon as the statement ends,
// so callers must bind the repo to a tx first.
func (r *ReservationRepo) LockResource(ctx context.Context, resourceID int64) error {
	const op = "postgres.ReservationRepo.LockResource"

	if _, err := r.handle().Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, resourceID); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListActiveInRange returns pending and approved reservations on the resource
// whose inclusive range touches rng. Services are not loaded.
func (r *ReservationRepo) ListActiveInRange(
	ctx context.Context,
	resourceID int64,
	rng domain.DateRange,
) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListActiveInRange"

	rows, err := r.handle().Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r
		 WHERE r.resource_id = $1
		   AND r.approval IN ('pending', 'approved')
		   AND r.start_date <= $3
		   AND r.end_date >= $2
		 ORDER BY r.start_date, r.id`,
		resourceID, rng.Start, rng.End,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectReservations(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Get retrieves a reservation with its service snapshot.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *ReservationRepo) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	const op = "postgres.ReservationRepo.Get"
	return r.getOne(ctx, op, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = $1`, id)
}

// GetForUpdate is Get with a row lock held until the surrounding tx ends.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id int64) (domain.Reservation, error) {
	const op = "postgres.ReservationRepo.GetForUpdate"
	return r.getOne(ctx, op, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepo) getOne(ctx context.Context, op, query string, id int64) (domain.Reservation, error) {
	db := r.handle()

	res, err := scanReservation(db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	services, err := loadServices(ctx, db, []int64{id})
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}
	res.Services = services[id]

	return res, nil
}

// Create inserts res and its service snapshot, then fills ID and timestamps.
func (r *ReservationRepo) Create(ctx context.Context, res *domain.Reservation) error {
	const op = "postgres.ReservationRepo.Create"

	db := r.handle()

	if err := db.QueryRow(ctx,
		`INSERT INTO reservations(user_id, resource_id, event_type_id, start_date, end_date,
		                          start_at, end_at, total_cents, approval, payment)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		res.UserID, res.ResourceID, res.EventTypeID, res.Range.Start, res.Range.End,
		res.StartAt, res.EndAt, res.TotalCents, string(res.Approval), string(res.Payment),
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return wrapDBErr(op, err)
	}

	if len(res.Services) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, s := range res.Services {
		batch.Queue(
			`INSERT INTO reservation_services(reservation_id, service_id, position, category,
			                                  name, price_cents, offer_price_cents)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.ID, s.ServiceID, i, string(s.Category), s.Name, s.PriceCents, s.OfferPriceCents,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ReservationRepo) SetApproval(ctx context.Context, id int64, status domain.ApprovalStatus) error {
	const op = "postgres.ReservationRepo.SetApproval"

	tag, err := r.handle().Exec(ctx,
		`UPDATE reservations SET approval = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReservationRepo) SetPaid(ctx context.Context, id int64) error {
	const op = "postgres.ReservationRepo.SetPaid"

	tag, err := r.handle().Exec(ctx,
		`UPDATE reservations SET payment = 'paid', updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReservationRepo) RejectPendingOverlapping(
	ctx context.Context,
	resourceID int64,
	rng domain.DateRange,
	exceptID int64,
) ([]int64, error) {
	const op = "postgres.ReservationRepo.RejectPendingOverlapping"

	rows, err := r.handle().Query(ctx,
		`UPDATE reservations
		 SET approval = 'rejected', updated_at = now()
		 WHERE resource_id = $1
		   AND approval = 'pending'
		   AND id <> $4
		   AND start_date <= $3
		   AND end_date >= $2
		 RETURNING id`,
		resourceID, rng.Start, rng.End, exceptID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

// Delete removes the reservation. Service snapshots and payment records cascade.
func (r *ReservationRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.ReservationRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var (
		res      domain.Reservation
		approval string
		payment  string
	)

	err := row.Scan(
		&res.ID, &res.UserID, &res.ResourceID, &res.EventTypeID,
		&res.Range.Start, &res.Range.End, &res.StartAt, &res.EndAt,
		&res.TotalCents, &approval, &payment, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}

	res.Range = domain.NewDateRange(res.Range.Start, res.Range.End)
	res.Approval = domain.ApprovalStatus(approval)
	res.Payment = domain.PaymentStatus(payment)

	return res, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func loadServices(ctx context.Context, db DB, ids []int64) (map[int64][]domain.ReservedService, error) {
	out := make(map[int64][]domain.ReservedService, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := db.Query(ctx,
		`SELECT reservation_id, service_id, category, name, price_cents, offer_price_cents
		 FROM reservation_services
		 WHERE reservation_id = ANY($1)
		 ORDER BY reservation_id, position`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			resID    int64
			s        domain.ReservedService
			category string
		)
		if err := rows.Scan(&resID, &s.ServiceID, &category, &s.Name, &s.PriceCents, &s.OfferPriceCents); err != nil {
			return nil, err
		}
		s.Category = domain.ServiceCategory(category)
		out[resID] = append(out[resID], s)
	}

	return out, rows.Err()
}

func attachServices(ctx context.Context, db DB, list []domain.Reservation) error {
	ids := make([]int64, 0, len(list))
	for _, res := range list {
		ids = append(ids, res.ID)
	}

	services, err := loadServices(ctx, db, ids)
	if err != nil {
		return err
	}

	for i := range list {
		list[i].Services = services[list[i].ID]
	}

	return nil
}

// monthBounds turns a month/year filter into a half-open [from, to) window.
// Month without year is ignored.
func monthBounds(month, year int) (time.Time, time.Time, bool) {
	switch {
	case year > 0 && month >= 1 && month <= 12:
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), true
	case year > 0:
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
