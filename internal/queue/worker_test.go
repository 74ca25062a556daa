package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/notify"
	"github.com/kirinyoku/venue-go/internal/repository/memrepo"
)

type recorder struct {
	sms []string
	err error
}

func (r *recorder) SendSMS(_ context.Context, phone, text string) error {
	r.sms = append(r.sms, phone)
	return r.err
}

func (r *recorder) SendEmail(context.Context, string, string, string) error { return r.err }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func seeded(phone string) (*memrepo.Store, int64) {
	s := memrepo.New()
	s.AddUser(domain.User{ID: 1, FirstName: "Asha", Phone: phone})
	s.AddResource(domain.Resource{ID: 1, Title: "Garden Hall", IsActive: true})
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	id := s.Seed(domain.Reservation{
		UserID:     1,
		ResourceID: 1,
		Range:      domain.NewDateRange(start, start.AddDate(0, 0, 2)),
		Approval:   domain.ApprovalApproved,
		TotalCents: 40000,
	})
	return s, id
}

func task(t *testing.T, id int64, kind notify.Kind) *asynq.Task {
	t.Helper()
	tk, _, err := NewNoticeTask(NoticePayload{ReservationID: id, Kind: kind})
	require.NoError(t, err)
	return tk
}

func TestNewNoticeTask(t *testing.T) {
	tk, opts, err := NewNoticeTask(NoticePayload{ReservationID: 12, Kind: notify.KindApproved})
	require.NoError(t, err)
	assert.Equal(t, TypeReservationNotice, tk.Type())
	assert.Len(t, opts, 4)

	var p NoticePayload
	require.NoError(t, json.Unmarshal(tk.Payload(), &p))
	assert.Equal(t, int64(12), p.ReservationID)
	assert.Equal(t, notify.KindApproved, p.Kind)
	assert.Equal(t, "notice:12:approved", noticeTaskID(p))
}

func TestNoticeHandlerDelivers(t *testing.T) {
	s, id := seeded("9800000000")
	rec := &recorder{}
	h := NewNoticeHandler(s.Repos().Reservations(), rec, discard())

	require.NoError(t, h.ProcessTask(context.Background(), task(t, id, notify.KindApproved)))
	assert.Equal(t, []string{"9800000000"}, rec.sms)
}

func TestNoticeHandlerRetriesTransientFailures(t *testing.T) {
	s, id := seeded("9800000000")
	rec := &recorder{err: notify.ErrDeliveryFailed}
	h := NewNoticeHandler(s.Repos().Reservations(), rec, discard())

	err := h.ProcessTask(context.Background(), task(t, id, notify.KindApproved))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestNoticeHandlerSkipsPermanentFailures(t *testing.T) {
	s, id := seeded("")
	h := NewNoticeHandler(s.Repos().Reservations(), &recorder{}, discard())

	err := h.ProcessTask(context.Background(), task(t, id, notify.KindApproved))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), task(t, id+100, notify.KindPaid))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask(TypeReservationNotice, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
