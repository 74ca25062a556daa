package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/venue-go/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxReportRows   = 10000
)

// List returns a page of reservations for operator listings, newest first.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - f: optional resource/user scope, month/year window on start date,
//     free-text search over venue title and customer name, and pagination.
//
// Returns:
//   - domain.ReservationPage: the page and the total number of matches.
func (r *ReservationRepo) List(ctx context.Context, f domain.ReservationFilter) (domain.ReservationPage, error) {
	const op = "postgres.ReservationRepo.List"

	db := r.handle()

	from, args := listFilter(f)
	limit, offset := pageBounds(f)

	query := `SELECT ` + reservationColumns + `, COUNT(*) OVER()` + from +
		fmt.Sprintf(" ORDER BY r.created_at DESC, r.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return domain.ReservationPage{}, wrapDBErr(op, err)
	}
	defer rows.Close()

	var page domain.ReservationPage
	for rows.Next() {
		var total int64
		res, err := scanReservation(withTrailing(rows, &total))
		if err != nil {
			return domain.ReservationPage{}, wrapDBErr(op, err)
		}
		page.Items = append(page.Items, res)
		page.TotalCount = total
	}
	if err := rows.Err(); err != nil {
		return domain.ReservationPage{}, wrapDBErr(op, err)
	}

	// A page past the end carries no window count.
	if len(page.Items) == 0 && offset > 0 {
		if err := db.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&page.TotalCount); err != nil {
			return domain.ReservationPage{}, wrapDBErr(op, err)
		}
	}

	if err := attachServices(ctx, db, page.Items); err != nil {
		return domain.ReservationPage{}, wrapDBErr(op, err)
	}

	return page, nil
}

// ReportRows feeds the booking export with customer, venue and event type
// names resolved.
func (r *ReservationRepo) ReportRows(ctx context.Context, f domain.ReservationFilter) ([]domain.ReservationReportRow, error) {
	const op = "postgres.ReservationRepo.ReportRows"

	from, args := listFilter(f)
	query := `SELECT r.id, u.first_name, u.last_name, u.email, rs.title,
		        COALESCE((SELECT et.name FROM event_types et WHERE et.id = r.event_type_id), ''),
		        r.start_date, r.end_date, r.total_cents, r.approval, r.payment, r.created_at` + from +
		fmt.Sprintf(" ORDER BY r.created_at DESC, r.id DESC LIMIT %d", maxReportRows)

	rows, err := r.handle().Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.ReservationReportRow
	for rows.Next() {
		var (
			row                 domain.ReservationReportRow
			first, last         string
			start, end          time.Time
			approval, payStatus string
		)
		if err := rows.Scan(&row.ReservationID, &first, &last, &row.Email, &row.ResourceTitle, &row.EventType,
			&start, &end, &row.TotalCents, &approval, &payStatus, &row.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		row.CustomerName = strings.TrimSpace(first + " " + last)
		row.Range = domain.NewDateRange(start, end)
		row.Approval = domain.ApprovalStatus(approval)
		row.Payment = domain.PaymentStatus(payStatus)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// listFilter renders the FROM and WHERE clauses shared by the page and count
// queries of List.
func listFilter(f domain.ReservationFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ResourceID != nil {
		where = append(where, "r.resource_id = "+arg(*f.ResourceID))
	}
	if f.UserID != nil {
		where = append(where, "r.user_id = "+arg(*f.UserID))
	}
	if from, to, ok := monthBounds(f.Month, f.Year); ok {
		where = append(where, "r.start_date >= "+arg(from)+" AND r.start_date < "+arg(to))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg(likePattern(s))
		where = append(where, "(rs.title ILIKE "+p+" OR u.first_name ILIKE "+p+" OR u.last_name ILIKE "+p+")")
	}

	from := `
		 FROM reservations r
		 JOIN resources rs ON rs.id = r.resource_id
		 JOIN users u ON u.id = r.user_id`
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}
	return from, args
}

func pageBounds(f domain.ReservationFilter) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, max(f.Offset, 0)
}

// ListStartingBetween returns reservations whose start date lies in [from, to),
// optionally scoped to one resource. Services are not loaded.
func (r *ReservationRepo) ListStartingBetween(
	ctx context.Context,
	resourceID *int64,
	from, to time.Time,
) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListStartingBetween"

	rows, err := r.handle().Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r
		 WHERE ($1::bigint IS NULL OR r.resource_id = $1)
		   AND r.start_date >= $2
		   AND r.start_date < $3
		 ORDER BY r.start_date`,
		resourceID, from, to,
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

// Summary collects what the approval notification needs: customer contact,
// venue title and the booked service names in selection order.
func (r *ReservationRepo) Summary(ctx context.Context, id int64) (domain.ReservationSummary, error) {
	const op = "postgres.ReservationRepo.Summary"

	db := r.handle()

	var s domain.ReservationSummary
	err := db.QueryRow(ctx,
		`SELECT r.id, u.first_name, u.last_name, u.phone, u.email, rs.title,
		        r.total_cents, r.start_date, r.end_date
		 FROM reservations r
		 JOIN users u ON u.id = r.user_id
		 JOIN resources rs ON rs.id = r.resource_id
		 WHERE r.id = $1`,
		id,
	).Scan(&s.ReservationID, &s.FirstName, &s.LastName, &s.Phone, &s.Email, &s.ResourceTitle,
		&s.TotalCents, &s.Range.Start, &s.Range.End)
	if err != nil {
		return domain.ReservationSummary{}, wrapDBErr(op, err)
	}

	services, err := loadServices(ctx, db, []int64{id})
	if err != nil {
		return domain.ReservationSummary{}, wrapDBErr(op, err)
	}
	for _, svc := range services[id] {
		s.ServiceNames = append(s.ServiceNames, svc.Name)
	}

	return s, nil
}

// trailingScanner appends extra destinations after the reservation columns.
type trailingScanner struct {
	row   rowScanner
	extra []any
}

func withTrailing(row rowScanner, extra ...any) trailingScanner {
	return trailingScanner{row: row, extra: extra}
}

func (t trailingScanner) Scan(dest ...any) error {
	return t.row.Scan(append(dest, t.extra...)...)
}
