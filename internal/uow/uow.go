package uow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/venue-go/internal/repository"
)

const (
	defaultAttempts = 3
	retryBackoff    = 20 * time.Millisecond
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	tx       repository.TxRunner
	attempts int
}

func NewUoW(tx repository.TxRunner) *UoW {
	return &UoW{tx: tx, attempts: defaultAttempts}
}

// WithAttempts sets how many times a serialization failure is retried in total.
func (u *UoW) WithAttempts(n int) *UoW {
	cp := *u
	if n < 1 {
		n = 1
	}
	cp.attempts = n
	return &cp
}

// Repos exposes non-transactional repositories for plain reads.
func (u *UoW) Repos() repository.Repos { return u.tx.Repos() }

// Do runs fn inside a transaction, retrying the whole function on
// serialization failures. Hooks registered by a failed attempt are
// discarded. After a successful commit, it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, repos repository.Repos, after func(AfterCommit)) error,
) error {
	const op = "uow.UoW.Do"

	var err error
	for attempt := 1; attempt <= u.attempts; attempt++ {
		var hooks []AfterCommit

		err = u.tx.RunTx(ctx, func(ctx context.Context, repos repository.Repos) error {
			return fn(ctx, repos, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}

		if !errors.Is(err, repository.ErrSerialization) || attempt == u.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s:%w", op, ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	return err
}
