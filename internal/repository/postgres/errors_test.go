package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository"
)

func TestTranslateDBErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, repository.ErrConflict},
		{"exclusion", &pgconn.PgError{Code: "23P01"}, repository.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, repository.ErrInvalidReference},
		{"serialization", &pgconn.PgError{Code: "40001"}, repository.ErrSerialization},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), repository.ErrSerialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateDBErr(tt.in), tt.want)
		})
	}

	other := errors.New("boom")
	assert.Equal(t, other, translateDBErr(other))
	assert.Nil(t, translateDBErr(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("x")))
}

func TestWrapDBErr(t *testing.T) {
	err := wrapDBErr("postgres.Test", pgx.ErrNoRows)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, err.Error(), "postgres.Test")
	assert.NoError(t, wrapDBErr("op", nil))
}

func TestMonthBounds(t *testing.T) {
	from, to, ok := monthBounds(2, 2026)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), to)

	from, to, ok = monthBounds(0, 2026)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, 2026, from.Year())

	_, _, ok = monthBounds(5, 0)
	assert.False(t, ok)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%garden\_hall 50\%%`, likePattern(" garden_hall 50% "))
}

func TestListFilter(t *testing.T) {
	from, args := listFilter(domain.ReservationFilter{})
	assert.NotContains(t, from, "WHERE")
	assert.Empty(t, args)

	resource, user := int64(3), int64(9)
	from, args = listFilter(domain.ReservationFilter{
		ResourceID: &resource,
		UserID:     &user,
		Month:      6,
		Year:       2025,
		Search:     "garden",
	})
	assert.Contains(t, from, "r.resource_id = $1 AND r.user_id = $2 AND r.start_date >= $3 AND r.start_date < $4")
	assert.Contains(t, from, "rs.title ILIKE $5")
	require.Len(t, args, 5)
	assert.Equal(t, "%garden%", args[4])
}

func TestPageBounds(t *testing.T) {
	limit, offset := pageBounds(domain.ReservationFilter{})
	assert.Equal(t, defaultPageSize, limit)
	assert.Zero(t, offset)

	limit, offset = pageBounds(domain.ReservationFilter{Limit: 1000, Offset: -4})
	assert.Equal(t, maxPageSize, limit)
	assert.Zero(t, offset)
}
