package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/venue-go/internal/repository"
)

// DB is satisfied by both the pool and a pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

var serializableRW = pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}

// RunTx runs fn in a serializable read-write transaction. Statement and commit
// failures caused by concurrent writers come back as
// repository.ErrSerialization so the caller can retry the whole unit.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) (err error) {
	const op = "postgres.Store.RunTx"

	tx, err := s.pool.BeginTx(ctx, serializableRW)
	if err != nil {
		return wrapDBErr(op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(ctx, s.bind(tx)); err != nil {
		if IsRetryable(err) {
			return fmt.Errorf("%s:%w", op, repository.ErrSerialization)
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit:%w", op, translateDBErr(err))
	}
	return nil
}

// Repos returns repositories that run each statement on the pool.
func (s *Store) Repos() repository.Repos { return s.bind(nil) }

func (s *Store) Reservations() *ReservationRepo { return &ReservationRepo{pool: s.pool} }
func (s *Store) Catalog() *CatalogRepo          { return &CatalogRepo{pool: s.pool} }
func (s *Store) Payments() *PaymentRepo         { return &PaymentRepo{pool: s.pool} }

type boundRepos struct {
	reservations *ReservationRepo
	catalog      *CatalogRepo
	payments     *PaymentRepo
}

func (s *Store) bind(db DB) boundRepos {
	b := boundRepos{
		reservations: s.Reservations(),
		catalog:      s.Catalog(),
		payments:     s.Payments(),
	}
	if db != nil {
		b.reservations = b.reservations.With(db)
		b.catalog = b.catalog.With(db)
		b.payments = b.payments.With(db)
	}
	return b
}

func (b boundRepos) Reservations() repository.Reservations { return b.reservations }
func (b boundRepos) Catalog() repository.Catalog           { return b.catalog }
func (b boundRepos) Payments() repository.Payments         { return b.payments }
