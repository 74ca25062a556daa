// Package memrepo keeps the repository contracts in process memory.
// Transactions are serialised with one mutex and roll back by restoring a
// snapshot, which gives tests the same all-or-nothing behaviour as the
// serializable postgres store.
package memrepo

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository"
)

type state struct {
	nextID       int64
	users        map[int64]domain.User
	eventTypes   map[int64]string
	resources    map[int64]domain.Resource
	services     map[int64]domain.ServiceLineItem
	reservations map[int64]domain.Reservation
	payments     map[uuid.UUID]domain.PaymentRecord
}

func (s *state) clone() *state {
	cp := &state{
		nextID:       s.nextID,
		users:        make(map[int64]domain.User, len(s.users)),
		eventTypes:   make(map[int64]string, len(s.eventTypes)),
		resources:    make(map[int64]domain.Resource, len(s.resources)),
		services:     make(map[int64]domain.ServiceLineItem, len(s.services)),
		reservations: make(map[int64]domain.Reservation, len(s.reservations)),
		payments:     make(map[uuid.UUID]domain.PaymentRecord, len(s.payments)),
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.eventTypes {
		cp.eventTypes[k] = v
	}
	for k, v := range s.resources {
		cp.resources[k] = v
	}
	for k, v := range s.services {
		cp.services[k] = v
	}
	for k, v := range s.reservations {
		v.Services = slices.Clone(v.Services)
		cp.reservations[k] = v
	}
	for k, v := range s.payments {
		cp.payments[k] = v
	}
	return cp
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: &state{
			nextID:       1,
			users:        map[int64]domain.User{},
			eventTypes:   map[int64]string{},
			resources:    map[int64]domain.Resource{},
			services:     map[int64]domain.ServiceLineItem{},
			reservations: map[int64]domain.Reservation{},
			payments:     map[uuid.UUID]domain.PaymentRecord{},
		},
		now: time.Now,
	}
}

// RunTx runs fn with exclusive access. Any error restores the state seen at entry.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, repos{s: s, inTx: true}); err != nil {
		s.st = snapshot
		return err
	}

	return nil
}

func (s *Store) Repos() repository.Repos { return repos{s: s} }

func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

func (s *Store) AddEventType(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.eventTypes[id] = name
}

func (s *Store) AddResource(r domain.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.resources[r.ID] = r
}

func (s *Store) AddServiceItem(it domain.ServiceLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.services[it.ID] = it
}

// Seed inserts a reservation as-is, keeping its ID when set.
func (s *Store) Seed(res domain.Reservation) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.ID == 0 {
		res.ID = s.st.nextID
	}
	if res.ID >= s.st.nextID {
		s.st.nextID = res.ID + 1
	}
	s.st.reservations[res.ID] = res
	return res.ID
}

// PaymentRecords lists stored records of a reservation.
func (s *Store) PaymentRecords(reservationID int64) []domain.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PaymentRecord
	for _, p := range s.st.payments {
		if p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	return out
}

type repos struct {
	s    *Store
	inTx bool
}

func (r repos) acquire() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r repos) Reservations() repository.Reservations { return reservations{r} }
func (r repos) Catalog() repository.Catalog           { return catalog{r} }
func (r repos) Payments() repository.Payments         { return payments{r} }

type reservations struct{ repos }

func (r reservations) LockResource(ctx context.Context, resourceID int64) error {
	return ctx.Err()
}

func (r reservations) ListActiveInRange(_ context.Context, resourceID int64, rng domain.DateRange) ([]domain.Reservation, error) {
	defer r.acquire()()

	var out []domain.Reservation
	for _, res := range r.s.st.reservations {
		if res.ResourceID != resourceID || res.Approval == domain.ApprovalRejected {
			continue
		}
		if res.Range.OverlapsInclusive(rng) {
			out = append(out, res)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r reservations) Get(_ context.Context, id int64) (domain.Reservation, error) {
	defer r.acquire()()

	res, ok := r.s.st.reservations[id]
	if !ok {
		return domain.Reservation{}, fmt.Errorf("memrepo.Get:%w", repository.ErrNotFound)
	}
	res.Services = slices.Clone(res.Services)
	return res, nil
}

func (r reservations) GetForUpdate(ctx context.Context, id int64) (domain.Reservation, error) {
	return r.Get(ctx, id)
}

func (r reservations) Create(_ context.Context, res *domain.Reservation) error {
	defer r.acquire()()

	if res.Approval == domain.ApprovalApproved {
		for _, other := range r.s.st.reservations {
			if other.ResourceID == res.ResourceID && other.IsApproved() && other.Range.OverlapsInclusive(res.Range) {
				return fmt.Errorf("memrepo.Create:%w", repository.ErrConflict)
			}
		}
	}

	now := r.s.now()
	res.ID = r.s.st.nextID
	r.s.st.nextID++
	res.CreatedAt, res.UpdatedAt = now, now

	stored := *res
	stored.Services = slices.Clone(res.Services)
	r.s.st.reservations[res.ID] = stored
	return nil
}

func (r reservations) SetApproval(_ context.Context, id int64, status domain.ApprovalStatus) error {
	defer r.acquire()()

	res, ok := r.s.st.reservations[id]
	if !ok {
		return fmt.Errorf("memrepo.SetApproval:%w", repository.ErrNotFound)
	}
	if status == domain.ApprovalApproved {
		for _, other := range r.s.st.reservations {
			if other.ID != id && other.ResourceID == res.ResourceID && other.IsApproved() && other.Range.OverlapsInclusive(res.Range) {
				return fmt.Errorf("memrepo.SetApproval:%w", repository.ErrConflict)
			}
		}
	}
	res.Approval = status
	res.UpdatedAt = r.s.now()
	r.s.st.reservations[id] = res
	return nil
}

func (r reservations) SetPaid(_ context.Context, id int64) error {
	defer r.acquire()()

	res, ok := r.s.st.reservations[id]
	if !ok {
		return fmt.Errorf("memrepo.SetPaid:%w", repository.ErrNotFound)
	}
	res.Payment = domain.PaymentPaid
	res.UpdatedAt = r.s.now()
	r.s.st.reservations[id] = res
	return nil
}

func (r reservations) RejectPendingOverlapping(_ context.Context, resourceID int64, rng domain.DateRange, exceptID int64) ([]int64, error) {
	defer r.acquire()()

	var ids []int64
	for id, res := range r.s.st.reservations {
		if id == exceptID || res.ResourceID != resourceID || res.Approval != domain.ApprovalPending {
			continue
		}
		if res.Range.OverlapsInclusive(rng) {
			res.Approval = domain.ApprovalRejected
			res.UpdatedAt = r.s.now()
			r.s.st.reservations[id] = res
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (r reservations) Delete(_ context.Context, id int64) error {
	defer r.acquire()()

	if _, ok := r.s.st.reservations[id]; !ok {
		return fmt.Errorf("memrepo.Delete:%w", repository.ErrNotFound)
	}
	delete(r.s.st.reservations, id)
	for pid, p := range r.s.st.payments {
		if p.ReservationID == id {
			delete(r.s.st.payments, pid)
		}
	}
	return nil
}

// matching applies f and orders newest first. Callers hold the lock.
func (r reservations) matching(f domain.ReservationFilter) []domain.Reservation {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var matched []domain.Reservation
	for _, res := range r.s.st.reservations {
		if f.ResourceID != nil && res.ResourceID != *f.ResourceID {
			continue
		}
		if f.UserID != nil && res.UserID != *f.UserID {
			continue
		}
		if f.Year > 0 && res.Range.Start.Year() != f.Year {
			continue
		}
		if f.Year > 0 && f.Month >= 1 && f.Month <= 12 && int(res.Range.Start.Month()) != f.Month {
			continue
		}
		if search != "" {
			u := r.s.st.users[res.UserID]
			hay := strings.ToLower(r.s.st.resources[res.ResourceID].Title + " " + u.FirstName + " " + u.LastName)
			if !strings.Contains(hay, search) {
				continue
			}
		}
		res.Services = slices.Clone(res.Services)
		matched = append(matched, res)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func (r reservations) ReportRows(_ context.Context, f domain.ReservationFilter) ([]domain.ReservationReportRow, error) {
	defer r.acquire()()

	var out []domain.ReservationReportRow
	for _, res := range r.matching(f) {
		u := r.s.st.users[res.UserID]
		out = append(out, domain.ReservationReportRow{
			ReservationID: res.ID,
			CustomerName:  strings.TrimSpace(u.FirstName + " " + u.LastName),
			Email:         u.Email,
			ResourceTitle: r.s.st.resources[res.ResourceID].Title,
			EventType:     r.s.st.eventTypes[res.EventTypeID],
			Range:         res.Range,
			TotalCents:    res.TotalCents,
			Approval:      res.Approval,
			Payment:       res.Payment,
			CreatedAt:     res.CreatedAt,
		})
	}
	return out, nil
}

func (r reservations) List(_ context.Context, f domain.ReservationFilter) (domain.ReservationPage, error) {
	defer r.acquire()()

	matched := r.matching(f)
	page := domain.ReservationPage{TotalCount: int64(len(matched))}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(f.Offset, 0)
	if offset < len(matched) {
		page.Items = matched[offset:min(offset+limit, len(matched))]
	}
	return page, nil
}

func (r reservations) ListStartingBetween(_ context.Context, resourceID *int64, from, to time.Time) ([]domain.Reservation, error) {
	defer r.acquire()()

	var out []domain.Reservation
	for _, res := range r.s.st.reservations {
		if resourceID != nil && res.ResourceID != *resourceID {
			continue
		}
		if res.Range.Start.Before(from) || !res.Range.Start.Before(to) {
			continue
		}
		out = append(out, res)
	}
	sortByStart(out)
	return out, nil
}

func (r reservations) Summary(_ context.Context, id int64) (domain.ReservationSummary, error) {
	defer r.acquire()()

	res, ok := r.s.st.reservations[id]
	if !ok {
		return domain.ReservationSummary{}, fmt.Errorf("memrepo.Summary:%w", repository.ErrNotFound)
	}
	u := r.s.st.users[res.UserID]

	s := domain.ReservationSummary{
		ReservationID: id,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		Email:         u.Email,
		ResourceTitle: r.s.st.resources[res.ResourceID].Title,
		TotalCents:    res.TotalCents,
		Range:         res.Range,
	}
	for _, svc := range res.Services {
		s.ServiceNames = append(s.ServiceNames, svc.Name)
	}
	return s, nil
}

type catalog struct{ repos }

func (c catalog) GetResource(_ context.Context, id int64) (domain.Resource, error) {
	defer c.acquire()()

	res, ok := c.s.st.resources[id]
	if !ok {
		return domain.Resource{}, fmt.Errorf("memrepo.GetResource:%w", repository.ErrNotFound)
	}
	return res, nil
}

func (c catalog) EventTypeExists(_ context.Context, id int64) (bool, error) {
	defer c.acquire()()
	_, ok := c.s.st.eventTypes[id]
	return ok, nil
}

func (c catalog) UserExists(_ context.Context, id int64) (bool, error) {
	defer c.acquire()()
	_, ok := c.s.st.users[id]
	return ok, nil
}

func (c catalog) ServiceItems(_ context.Context, resourceID int64, ids []int64) ([]domain.ServiceLineItem, error) {
	defer c.acquire()()

	var out []domain.ServiceLineItem
	for _, id := range ids {
		if it, ok := c.s.st.services[id]; ok && it.ResourceID == resourceID {
			out = append(out, it)
		}
	}
	return out, nil
}

type payments struct{ repos }

func (p payments) Create(_ context.Context, rec *domain.PaymentRecord) error {
	defer p.acquire()()

	for _, other := range p.s.st.payments {
		if other.Provider == rec.Provider && other.ProviderRef == rec.ProviderRef {
			return fmt.Errorf("memrepo.CreatePayment:%w", repository.ErrConflict)
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := p.s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	p.s.st.payments[rec.ID] = *rec
	return nil
}

func (p payments) GetByRef(_ context.Context, provider domain.PaymentProvider, ref string) (domain.PaymentRecord, error) {
	defer p.acquire()()

	for _, rec := range p.s.st.payments {
		if rec.Provider == provider && rec.ProviderRef == ref {
			return rec, nil
		}
	}
	return domain.PaymentRecord{}, fmt.Errorf("memrepo.GetByRef:%w", repository.ErrNotFound)
}

func (p payments) CompletedFor(_ context.Context, reservationID int64) (domain.PaymentRecord, bool, error) {
	defer p.acquire()()

	for _, rec := range p.s.st.payments {
		if rec.ReservationID == reservationID && rec.Status == domain.PaymentRecordCompleted {
			return rec, true, nil
		}
	}
	return domain.PaymentRecord{}, false, nil
}

func (p payments) MarkCompleted(_ context.Context, id uuid.UUID, transactionID string) error {
	defer p.acquire()()

	rec, ok := p.s.st.payments[id]
	if !ok || rec.Status != domain.PaymentRecordPending {
		return fmt.Errorf("memrepo.MarkCompleted:%w", repository.ErrNotFound)
	}
	for _, other := range p.s.st.payments {
		if other.ReservationID == rec.ReservationID && other.Status == domain.PaymentRecordCompleted {
			return fmt.Errorf("memrepo.MarkCompleted:%w", repository.ErrConflict)
		}
	}
	rec.Status = domain.PaymentRecordCompleted
	rec.TransactionID = transactionID
	rec.UpdatedAt = p.s.now()
	p.s.st.payments[id] = rec
	return nil
}

func sortByStart(list []domain.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Range.Start.Equal(list[j].Range.Start) {
			return list[i].Range.Start.Before(list[j].Range.Start)
		}
		return list[i].ID < list[j].ID
	})
}
