package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/events"
	"github.com/kirinyoku/venue-go/internal/notify"
	"github.com/kirinyoku/venue-go/internal/repository"
	"github.com/kirinyoku/venue-go/internal/repository/memrepo"
	redisrepo "github.com/kirinyoku/venue-go/internal/repository/redis"
	"github.com/kirinyoku/venue-go/internal/service/order"
	"github.com/kirinyoku/venue-go/internal/uow"
)

var (
	customer = domain.Actor{UserID: 10, Role: domain.RoleUser}
	other    = domain.Actor{UserID: 11, Role: domain.RoleUser}
	admin    = domain.Actor{UserID: 1, Role: domain.RoleAdmin}
)

type fakeStats struct {
	mu   sync.Mutex
	hits []int64
}

func (f *fakeStats) Invalidate(_ context.Context, resourceID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, resourceID)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []int64
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, id int64, _ notify.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	return f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, evt events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeLimiter struct{ allowed bool }

func (f fakeLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	return redisrepo.Decision{Allowed: f.allowed, RetryAfter: 30 * time.Second}, nil
}

type fixture struct {
	store      *memrepo.Store
	svc        *Service
	stats      *fakeStats
	dispatcher *fakeDispatcher
	publisher  *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memrepo.New()
	store.AddUser(domain.User{ID: 10, FirstName: "Asha", Phone: "9800000000"})
	store.AddUser(domain.User{ID: 11, FirstName: "Bikash"})
	store.AddEventType(1, "Wedding")
	store.AddResource(domain.Resource{ID: 1, Title: "Garden Hall", IsActive: true})
	store.AddResource(domain.Resource{ID: 2, Title: "Closed Hall", IsActive: false})
	store.AddServiceItem(domain.ServiceLineItem{ID: 7, ResourceID: 1, Category: domain.CategoryCateringTent, Name: "Tent", PriceCents: 500, OfferPriceCents: 100})
	store.AddServiceItem(domain.ServiceLineItem{ID: 8, ResourceID: 1, Category: domain.CategoryMusical, Name: "DJ", PriceCents: 300})

	f := &fixture{
		store:      store,
		stats:      &fakeStats{},
		dispatcher: &fakeDispatcher{},
		publisher:  &fakePublisher{},
	}
	f.svc = New(uow.NewUoW(store), f.stats, f.dispatcher, f.publisher, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return f
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func input(from, to string) CreateInput {
	return CreateInput{ResourceID: 1, EventTypeID: 1, StartDate: day(from), EndDate: day(to)}
}

func (f *fixture) seed(from, to string, approval domain.ApprovalStatus) int64 {
	return f.store.Seed(domain.Reservation{
		UserID:     10,
		ResourceID: 1,
		Range:      domain.NewDateRange(day(from), day(to)),
		Approval:   approval,
		Payment:    domain.PaymentUnpaid,
	})
}

func TestCreatePricesAndPersists(t *testing.T) {
	f := newFixture(t)

	in := input("2025-06-10", "2025-06-12")
	in.Selections = domain.Selections{domain.CategoryCateringTent: {7}, domain.CategoryMusical: {8}}
	in.StartTime, in.EndTime = "10:00", "18:30"

	res, err := f.svc.Create(context.Background(), customer, in)
	require.NoError(t, err)

	assert.NotZero(t, res.ID)
	assert.Equal(t, int64(10), res.UserID)
	assert.Equal(t, domain.ApprovalPending, res.Approval)
	assert.Equal(t, domain.PaymentUnpaid, res.Payment)
	assert.Equal(t, int64(700), res.TotalCents)
	require.NotNil(t, res.StartAt)
	assert.Equal(t, time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC), *res.StartAt)
	assert.Equal(t, time.Date(2025, 6, 12, 18, 30, 0, 0, time.UTC), *res.EndAt)

	stored, err := f.store.Repos().Reservations().Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.TotalCents, domain.ServicesTotal(stored.Services))
	assert.Len(t, stored.Services, 2)

	assert.Equal(t, []int64{1}, f.stats.hits)
	assert.Equal(t, []string{events.ReservationCreated}, f.publisher.types())
	assert.Empty(t, f.dispatcher.sent)
}

func TestCreateRejectsApprovedOverlap(t *testing.T) {
	f := newFixture(t)
	approvedID := f.seed("2025-06-10", "2025-06-12", domain.ApprovalApproved)

	_, err := f.svc.Create(context.Background(), customer, input("2025-06-11", "2025-06-13"))
	require.ErrorIs(t, err, domain.ErrConflict)

	var ce domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.RejectApprovedOverlap, ce.Kind)
	assert.Equal(t, approvedID, ce.ReservationID)

	_, err = f.svc.Create(context.Background(), customer, input("2025-06-12", "2025-06-12"))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.RejectApprovedOverlap, ce.Kind)

	assert.Empty(t, f.publisher.types())
}

func TestCreatePendingQueuing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, customer, input("2025-07-01", "2025-07-05"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, other, input("2025-07-05", "2025-07-07"))
	require.NoError(t, err, "pending requests may share a boundary day")

	_, err = f.svc.Create(ctx, other, input("2025-07-02", "2025-07-03"))
	var ce domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.RejectPendingOverlap, ce.Kind)
}

func TestCreateByOperatorApprovesAndRejectsTouchingPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pendingID := f.seed("2025-08-01", "2025-08-03", domain.ApprovalPending)

	res, err := f.svc.Create(ctx, admin, CreateInput{
		ResourceID: 1, EventTypeID: 1, UserID: 11,
		StartDate: day("2025-08-03"), EndDate: day("2025-08-04"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, res.Approval)
	assert.Equal(t, int64(11), res.UserID)

	pending, err := f.store.Repos().Reservations().Get(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, pending.Approval)
	assert.Equal(t, []string{events.ReservationCreated, events.ReservationRejected}, f.publisher.types())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor domain.Actor
		in    CreateInput
		want  error
	}{
		{"end before start", customer, input("2025-06-12", "2025-06-10"), ErrInvalidDateRange},
		{"missing dates", customer, CreateInput{ResourceID: 1}, ErrInvalidDateRange},
		{"half time range", customer, func() CreateInput { in := input("2025-06-10", "2025-06-10"); in.StartTime = "10:00"; return in }(), ErrInvalidDateRange},
		{"same day end before start", customer, func() CreateInput {
			in := input("2025-06-10", "2025-06-10")
			in.StartTime, in.EndTime = "18:00", "09:00"
			return in
		}(), ErrInvalidDateRange},
		{"bad time", customer, func() CreateInput {
			in := input("2025-06-10", "2025-06-11")
			in.StartTime, in.EndTime = "25:00", "09:00"
			return in
		}(), ErrInvalidDateRange},
		{"missing event type", customer, func() CreateInput { in := input("2025-06-10", "2025-06-10"); in.EventTypeID = 0; return in }(), ErrInvalidEventType},
		{"negative event type", admin, func() CreateInput { in := input("2025-06-10", "2025-06-10"); in.EventTypeID = -5; return in }(), ErrInvalidEventType},
		{"unknown event type", customer, func() CreateInput { in := input("2025-06-10", "2025-06-10"); in.EventTypeID = 42; return in }(), ErrInvalidEventType},
		{"operator books for unknown user", admin, func() CreateInput { in := input("2025-06-10", "2025-06-10"); in.UserID = 999; return in }(), ErrUserNotFound},
		{"unknown venue", customer, CreateInput{ResourceID: 99, EventTypeID: 1, StartDate: day("2025-06-10"), EndDate: day("2025-06-10")}, ErrResourceNotFound},
		{"inactive venue", customer, CreateInput{ResourceID: 2, EventTypeID: 1, StartDate: day("2025-06-10"), EndDate: day("2025-06-10")}, ErrResourceInactive},
		{"foreign service", customer, func() CreateInput {
			in := input("2025-06-10", "2025-06-10")
			in.Selections = domain.Selections{domain.CategoryLuxury: {7}}
			return in
		}(), order.ErrInvalidSelection},
		{"on behalf of another user", customer, func() CreateInput { in := input("2025-06-10", "2025-06-10"); in.UserID = 11; return in }(), ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	page, err := f.svc.List(ctx, admin, domain.ReservationFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
}

func TestCreateRateLimited(t *testing.T) {
	f := newFixture(t)
	f.svc.limiter = fakeLimiter{allowed: false}

	_, err := f.svc.Create(context.Background(), customer, input("2025-06-10", "2025-06-10"))
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = f.svc.Create(context.Background(), admin, input("2025-06-10", "2025-06-10"))
	assert.NoError(t, err)
}

func TestCreateConcurrentOverlapAdmitsOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := domain.Actor{UserID: int64(100 + i), Role: domain.RoleUser}
			_, err := f.svc.Create(ctx, actor, input("2025-09-10", "2025-09-15"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, n-1, conflicts)
}

func TestSetApprovalApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	winner := f.seed("2025-06-10", "2025-06-12", domain.ApprovalPending)
	loser := f.seed("2025-06-12", "2025-06-14", domain.ApprovalPending)
	unrelated := f.seed("2025-06-20", "2025-06-21", domain.ApprovalPending)

	res, err := f.svc.SetApproval(ctx, admin, winner, true)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, res.Approval)

	got, _ := f.store.Repos().Reservations().Get(ctx, loser)
	assert.Equal(t, domain.ApprovalRejected, got.Approval)
	got, _ = f.store.Repos().Reservations().Get(ctx, unrelated)
	assert.Equal(t, domain.ApprovalPending, got.Approval)

	assert.Equal(t, []int64{winner}, f.dispatcher.sent)
	assert.Equal(t, []string{events.ReservationApproved, events.ReservationRejected}, f.publisher.types())

	_, err = f.svc.SetApproval(ctx, admin, winner, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{winner}, f.dispatcher.sent, "re-approval must not notify again")
}

func TestSetApprovalNotificationFailureKeepsApproval(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("queue down")
	id := f.seed("2025-06-10", "2025-06-12", domain.ApprovalPending)

	_, err := f.svc.SetApproval(context.Background(), admin, id, true)
	require.NoError(t, err)

	got, _ := f.store.Repos().Reservations().Get(context.Background(), id)
	assert.Equal(t, domain.ApprovalApproved, got.Approval)
}

func TestSetApprovalConflictsWithApproved(t *testing.T) {
	f := newFixture(t)
	f.seed("2025-06-10", "2025-06-12", domain.ApprovalApproved)
	rejected := f.seed("2025-06-12", "2025-06-13", domain.ApprovalRejected)

	_, err := f.svc.SetApproval(context.Background(), admin, rejected, true)
	var ce domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.RejectApprovedOverlap, ce.Kind)
	assert.Empty(t, f.dispatcher.sent)
}

func TestSetApprovalReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed("2025-06-10", "2025-06-12", domain.ApprovalApproved)

	res, err := f.svc.SetApproval(ctx, admin, id, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, res.Approval)
	assert.Empty(t, f.dispatcher.sent)

	require.NoError(t, f.store.Repos().Reservations().SetPaid(ctx, id))
	_, err = f.svc.SetApproval(ctx, admin, id, false)
	assert.ErrorIs(t, err, ErrReservationPaid)
}

func TestSetApprovalErrors(t *testing.T) {
	f := newFixture(t)
	id := f.seed("2025-06-10", "2025-06-12", domain.ApprovalPending)

	_, err := f.svc.SetApproval(context.Background(), customer, id, true)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SetApproval(context.Background(), admin, 404, true)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed("2025-06-10", "2025-06-12", domain.ApprovalPending)

	assert.ErrorIs(t, f.svc.Delete(ctx, customer, id), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, admin, id))
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, id), ErrReservationNotFound)
	assert.Equal(t, []string{events.ReservationDeleted}, f.publisher.types())
}

func TestReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed("2025-06-10", "2025-06-12", domain.ApprovalPending)

	res, err := f.svc.Get(ctx, customer, id)
	require.NoError(t, err)
	assert.Equal(t, id, res.ID)

	_, err = f.svc.Get(ctx, other, id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Get(ctx, admin, 404)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	page, err := f.svc.ListByUser(ctx, customer, 10, domain.ReservationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalCount)

	_, err = f.svc.ListByUser(ctx, other, 10, domain.ReservationFilter{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.List(ctx, customer, domain.ReservationFilter{})
	assert.ErrorIs(t, err, ErrForbidden)

	page, err = f.svc.List(ctx, admin, domain.ReservationFilter{Search: "garden"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	june := f.seed("2025-06-10", "2025-06-12", domain.ApprovalApproved)
	f.seed("2025-07-01", "2025-07-02", domain.ApprovalPending)

	_, err := f.svc.Export(ctx, customer, domain.ReservationFilter{Month: 6, Year: 2025})
	assert.ErrorIs(t, err, ErrForbidden)

	for _, period := range []domain.ReservationFilter{{Year: 2025}, {Month: 6}, {Month: 13, Year: 2025}} {
		_, err = f.svc.Export(ctx, admin, period)
		assert.ErrorIs(t, err, ErrReportPeriod)
	}

	uid := int64(11)
	rows, err := f.svc.Export(ctx, admin, domain.ReservationFilter{Month: 6, Year: 2025, UserID: &uid})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, june, rows[0].ReservationID)
	assert.Equal(t, "Asha", rows[0].CustomerName)
	assert.Equal(t, "Garden Hall", rows[0].ResourceTitle)
	assert.Equal(t, domain.ApprovalApproved, rows[0].Approval)

	rows, err = f.svc.Export(ctx, admin, domain.ReservationFilter{Month: 6, Year: 2025, Search: "bikash"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// missingRefRunner fails every reservation insert the way postgres does on a
// foreign key violation.
type missingRefRunner struct{ *memrepo.Store }

func (r missingRefRunner) RunTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	return r.Store.RunTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		return fn(ctx, missingRefRepos{repos})
	})
}

type missingRefRepos struct{ repository.Repos }

func (r missingRefRepos) Reservations() repository.Reservations {
	return missingRefReservations{r.Repos.Reservations()}
}

type missingRefReservations struct{ repository.Reservations }

func (missingRefReservations) Create(context.Context, *domain.Reservation) error {
	return fmt.Errorf("postgres.ReservationRepo.Create:%w", repository.ErrInvalidReference)
}

func TestCreateMapsMissingReference(t *testing.T) {
	f := newFixture(t)
	f.svc.uow = uow.NewUoW(missingRefRunner{f.store})

	_, err := f.svc.Create(context.Background(), customer, input("2025-06-10", "2025-06-10"))
	require.ErrorIs(t, err, ErrUnknownReference)
	assert.Empty(t, f.publisher.types())
}
