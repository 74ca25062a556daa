package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func rng(from, to string) DateRange {
	return NewDateRange(day(from), day(to))
}

func TestCheckConflict(t *testing.T) {
	existing := []Reservation{
		{ID: 1, Range: rng("2025-06-10", "2025-06-12"), Approval: ApprovalApproved},
		{ID: 2, Range: rng("2025-07-01", "2025-07-05"), Approval: ApprovalPending},
		{ID: 3, Range: rng("2025-08-01", "2025-08-31"), Approval: ApprovalRejected},
	}

	tests := []struct {
		name      string
		candidate DateRange
		exceptID  int64
		wantKind  ConflictKind
		wantID    int64
	}{
		{"approved interior overlap", rng("2025-06-11", "2025-06-13"), 0, RejectApprovedOverlap, 1},
		{"approved shared start boundary", rng("2025-06-12", "2025-06-14"), 0, RejectApprovedOverlap, 1},
		{"approved shared end boundary", rng("2025-06-08", "2025-06-10"), 0, RejectApprovedOverlap, 1},
		{"approved adjacent day", rng("2025-06-13", "2025-06-15"), 0, Admit, 0},
		{"pending interior overlap", rng("2025-07-03", "2025-07-08"), 0, RejectPendingOverlap, 2},
		{"pending shared boundary queues", rng("2025-07-05", "2025-07-07"), 0, Admit, 0},
		{"pending covering range", rng("2025-06-30", "2025-07-06"), 0, RejectPendingOverlap, 2},
		{"rejected never conflicts", rng("2025-08-10", "2025-08-12"), 0, Admit, 0},
		{"except id skips self", rng("2025-06-10", "2025-06-12"), 1, Admit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id := CheckConflict(existing, tt.candidate, tt.exceptID)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestCheckConflictApprovedWinsOverPending(t *testing.T) {
	existing := []Reservation{
		{ID: 5, Range: rng("2025-06-01", "2025-06-20"), Approval: ApprovalPending},
		{ID: 6, Range: rng("2025-06-10", "2025-06-10"), Approval: ApprovalApproved},
	}

	kind, id := CheckConflict(existing, rng("2025-06-09", "2025-06-11"), 0)
	assert.Equal(t, RejectApprovedOverlap, kind)
	assert.Equal(t, int64(6), id)
}

func TestConflictErr(t *testing.T) {
	existing := []Reservation{
		{ID: 1, Range: rng("2025-06-10", "2025-06-12"), Approval: ApprovalApproved},
	}

	err := ConflictErr(existing, rng("2025-06-11", "2025-06-13"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	var ce ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, RejectApprovedOverlap, ce.Kind)
	assert.Equal(t, "approved_overlap", ce.Kind.String())

	assert.NoError(t, ConflictErr(existing, rng("2025-06-13", "2025-06-14"), 0))
}

func TestDateRange(t *testing.T) {
	r := NewDateRange(time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC), time.Date(2025, 6, 12, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, day("2025-06-10"), r.Start)
	assert.Equal(t, day("2025-06-12"), r.End)
	assert.True(t, r.Valid())

	assert.False(t, rng("2025-06-12", "2025-06-10").Valid())
	assert.True(t, rng("2025-06-10", "2025-06-10").Valid())
	assert.False(t, DateRange{}.Valid())
}

func TestApprovedOverlapErr(t *testing.T) {
	existing := []Reservation{
		{ID: 1, Range: rng("2025-06-10", "2025-06-12"), Approval: ApprovalApproved},
		{ID: 2, Range: rng("2025-06-11", "2025-06-11"), Approval: ApprovalPending},
	}

	assert.NoError(t, ApprovedOverlapErr(existing, rng("2025-06-10", "2025-06-12"), 1))
	assert.NoError(t, ApprovedOverlapErr(existing, rng("2025-06-13", "2025-06-14"), 0))

	err := ApprovedOverlapErr(existing, rng("2025-06-12", "2025-06-12"), 2)
	var ce ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, int64(1), ce.ReservationID)
}
