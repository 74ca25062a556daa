package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository"
)

const paymentColumns = `id, reservation_id, provider, status, amount_cents,
	provider_ref, transaction_id, created_at, updated_at`

type PaymentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PaymentRepo) With(db DB) *PaymentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PaymentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create stores a payment record. A zero ID is replaced with a fresh uuid.
//
// Returns:
//   - error: repository.ErrConflict if the provider reference is already recorded.
func (r *PaymentRepo) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	const op = "postgres.PaymentRepo.Create"

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO payment_records(id, reservation_id, provider, status, amount_cents,
		                             provider_ref, transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		rec.ID, rec.ReservationID, string(rec.Provider), string(rec.Status), rec.AmountCents,
		rec.ProviderRef, rec.TransactionID,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *PaymentRepo) GetByRef(
	ctx context.Context,
	provider domain.PaymentProvider,
	ref string,
) (domain.PaymentRecord, error) {
	const op = "postgres.PaymentRepo.GetByRef"

	rec, err := scanPayment(r.handle().QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE provider = $1 AND provider_ref = $2`,
		string(provider), ref,
	))
	if err != nil {
		return domain.PaymentRecord{}, wrapDBErr(op, err)
	}

	return rec, nil
}

// CompletedFor returns the completed record of a reservation, if any.
func (r *PaymentRepo) CompletedFor(ctx context.Context, reservationID int64) (domain.PaymentRecord, bool, error) {
	const op = "postgres.PaymentRepo.CompletedFor"

	rec, err := scanPayment(r.handle().QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records
		 WHERE reservation_id = $1 AND status = 'completed'`,
		reservationID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentRecord{}, false, nil
	}
	if err != nil {
		return domain.PaymentRecord{}, false, wrapDBErr(op, err)
	}

	return rec, true, nil
}

func (r *PaymentRepo) MarkCompleted(ctx context.Context, id uuid.UUID, transactionID string) error {
	const op = "postgres.PaymentRepo.MarkCompleted"

	tag, err := r.handle().Exec(ctx,
		`UPDATE payment_records
		 SET status = 'completed', transaction_id = $2, updated_at = now()
		 WHERE id = $1 AND status = 'pending'`,
		id, transactionID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func scanPayment(row rowScanner) (domain.PaymentRecord, error) {
	var (
		rec      domain.PaymentRecord
		provider string
		status   string
	)

	if err := row.Scan(&rec.ID, &rec.ReservationID, &provider, &status, &rec.AmountCents,
		&rec.ProviderRef, &rec.TransactionID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return domain.PaymentRecord{}, err
	}

	rec.Provider = domain.PaymentProvider(provider)
	rec.Status = domain.PaymentRecordStatus(status)

	return rec, nil
}
