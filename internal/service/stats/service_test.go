package stats

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository/memrepo"
	redisrepo "github.com/kirinyoku/venue-go/internal/repository/redis"
)

func at(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func newService(t *testing.T, store *memrepo.Store, withCache bool) *Service {
	t.Helper()

	var cache *redisrepo.Cache
	if withCache {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		cache = redisrepo.New(rdb)
	}

	svc := New(store.Repos().Reservations(), cache, Config{CacheTTL: time.Minute}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return at("2025-06-15") }
	return svc
}

func seed(s *memrepo.Store, resourceID int64, start string, approval domain.ApprovalStatus) {
	s.Seed(domain.Reservation{
		ResourceID: resourceID,
		Range:      domain.NewDateRange(at(start), at(start)),
		Approval:   approval,
	})
}

func TestMonthlyApprovalCounts(t *testing.T) {
	store := memrepo.New()
	seed(store, 1, "2025-06-20", domain.ApprovalApproved)
	seed(store, 1, "2025-06-21", domain.ApprovalRejected)
	seed(store, 2, "2025-07-01", domain.ApprovalPending)
	seed(store, 1, "2025-05-30", domain.ApprovalApproved)

	svc := newService(t, store, false)

	all, err := svc.MonthlyApprovalCounts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 12)
	assert.Equal(t, "Jun", all[0].Month)
	assert.Equal(t, int64(1), all[0].Approved)
	assert.Equal(t, int64(1), all[0].Pending)
	assert.Equal(t, int64(1), all[1].Pending)

	rid := int64(2)
	scoped, err := svc.MonthlyApprovalCounts(context.Background(), &rid)
	require.NoError(t, err)
	assert.Zero(t, scoped[0].Approved+scoped[0].Pending)
	assert.Equal(t, int64(1), scoped[1].Pending)
}

func TestMonthlyApprovalCountsCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := memrepo.New()
	seed(store, 1, "2025-06-20", domain.ApprovalApproved)

	svc := newService(t, store, true)

	first, err := svc.MonthlyApprovalCounts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first[0].Approved)

	seed(store, 1, "2025-06-25", domain.ApprovalApproved)

	cached, err := svc.MonthlyApprovalCounts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached[0].Approved)

	svc.Invalidate(ctx, 1)

	fresh, err := svc.MonthlyApprovalCounts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh[0].Approved)
}
