package uow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/repository"
	"github.com/kirinyoku/venue-go/internal/repository/memrepo"
)

// flakyRunner fails the first n transactions with a serialization error.
type flakyRunner struct {
	*memrepo.Store
	failures int
	calls    int
}

func (f *flakyRunner) RunTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	f.calls++
	if f.calls <= f.failures {
		_ = f.Store.RunTx(ctx, fn)
		return fmt.Errorf("commit:%w", repository.ErrSerialization)
	}
	return f.Store.RunTx(ctx, fn)
}

func TestDoRunsHooksAfterCommit(t *testing.T) {
	u := NewUoW(memrepo.New())

	var order []string
	err := u.Do(context.Background(), func(ctx context.Context, repos repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { order = append(order, "hook") })
		order = append(order, "body")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "hook"}, order)
}

func TestDoSkipsHooksOnError(t *testing.T) {
	u := NewUoW(memrepo.New())

	boom := errors.New("boom")
	ran := false
	err := u.Do(context.Background(), func(ctx context.Context, repos repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { ran = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestDoRetriesSerializationFailures(t *testing.T) {
	runner := &flakyRunner{Store: memrepo.New(), failures: 2}
	u := NewUoW(runner)

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, repos repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 1, hooks)
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	runner := &flakyRunner{Store: memrepo.New(), failures: 5}
	u := NewUoW(runner).WithAttempts(2)

	err := u.Do(context.Background(), func(ctx context.Context, repos repository.Repos, after func(AfterCommit)) error {
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrSerialization)
	assert.Equal(t, 2, runner.calls)
}
