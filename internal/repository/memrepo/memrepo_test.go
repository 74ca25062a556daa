package memrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository"
)

func dr(from, to string) domain.DateRange {
	f, _ := time.Parse(time.DateOnly, from)
	t, _ := time.Parse(time.DateOnly, to)
	return domain.NewDateRange(f, t)
}

func TestRunTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.RunTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		res := &domain.Reservation{ResourceID: 1, Range: dr("2025-06-01", "2025-06-02"), Approval: domain.ApprovalPending}
		require.NoError(t, repos.Reservations().Create(ctx, res))
		return boom
	})
	require.ErrorIs(t, err, boom)

	page, err := s.Repos().Reservations().List(ctx, domain.ReservationFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
}

func TestApprovedOverlapRejectedByStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(domain.Reservation{ID: 1, ResourceID: 1, Range: dr("2025-06-10", "2025-06-12"), Approval: domain.ApprovalApproved})

	res := &domain.Reservation{ResourceID: 1, Range: dr("2025-06-12", "2025-06-13"), Approval: domain.ApprovalApproved}
	err := s.Repos().Reservations().Create(ctx, res)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestRejectPendingOverlapping(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(domain.Reservation{ID: 1, ResourceID: 1, Range: dr("2025-06-10", "2025-06-12"), Approval: domain.ApprovalPending})
	s.Seed(domain.Reservation{ID: 2, ResourceID: 1, Range: dr("2025-06-12", "2025-06-14"), Approval: domain.ApprovalPending})
	s.Seed(domain.Reservation{ID: 3, ResourceID: 1, Range: dr("2025-06-20", "2025-06-21"), Approval: domain.ApprovalPending})
	s.Seed(domain.Reservation{ID: 4, ResourceID: 2, Range: dr("2025-06-10", "2025-06-12"), Approval: domain.ApprovalPending})

	ids, err := s.Repos().Reservations().RejectPendingOverlapping(ctx, 1, dr("2025-06-10", "2025-06-12"), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	got, err := s.Repos().Reservations().Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, got.Approval)
}

func TestDeleteCascadesPayments(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := s.Seed(domain.Reservation{ResourceID: 1, Range: dr("2025-06-10", "2025-06-12")})

	rec := &domain.PaymentRecord{ReservationID: id, Provider: domain.ProviderKhalti, ProviderRef: "pidx", AmountCents: 100}
	require.NoError(t, s.Repos().Payments().Create(ctx, rec))
	require.Len(t, s.PaymentRecords(id), 1)

	require.NoError(t, s.Repos().Reservations().Delete(ctx, id))
	assert.Empty(t, s.PaymentRecords(id))

	err := s.Repos().Reservations().Delete(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
