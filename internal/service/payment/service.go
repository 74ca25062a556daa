package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/events"
	stripegw "github.com/kirinyoku/venue-go/internal/gateway/stripe"
	"github.com/kirinyoku/venue-go/internal/notify"
	"github.com/kirinyoku/venue-go/internal/repository"
	"github.com/kirinyoku/venue-go/internal/uow"
)

// Gateway is a hosted checkout provider.
type Gateway interface {
	Initiate(ctx context.Context, req domain.PaymentRequest) (domain.PaymentInitiation, error)
	Verify(ctx context.Context, providerRef string) (domain.PaymentVerification, error)
}

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (stripegw.WebhookResult, bool, error)
}

type StatsInvalidator interface {
	Invalidate(ctx context.Context, resourceID int64)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, reservationID int64, kind notify.Kind) error
}

type Config struct {
	GatewayTimeout time.Duration
}

type Service struct {
	uow        *uow.UoW
	gateways   map[domain.PaymentProvider]Gateway
	webhooks   WebhookParser
	stats      StatsInvalidator
	dispatcher Dispatcher
	publisher  events.Publisher
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// New wires the payment flow. webhooks may be nil when Stripe is not configured.
func New(
	u *uow.UoW,
	gateways map[domain.PaymentProvider]Gateway,
	webhooks WebhookParser,
	stats StatsInvalidator,
	dispatcher Dispatcher,
	publisher events.Publisher,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}

	return &Service{
		uow:        u,
		gateways:   gateways,
		webhooks:   webhooks,
		stats:      stats,
		dispatcher: dispatcher,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Initiate opens a checkout for the reservation total. The pending record is
// stored only after the gateway accepted the request. Only the reservation's
// owner or an operator may pay for it.
func (s *Service) Initiate(
	ctx context.Context,
	actor domain.Actor,
	provider domain.PaymentProvider,
	reservationID int64,
) (domain.PaymentInitiation, error) {
	const op = "service.payment.Initiate"

	gw, ok := s.gateways[provider]
	if !ok {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, ErrUnknownProvider)
	}

	repos := s.uow.Repos()

	res, err := repos.Reservations().Get(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
		}
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, err)
	}
	if !canPay(actor, res) {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, ErrForbidden)
	}
	if res.IsPaid() {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, ErrAlreadyPaid)
	}
	if res.TotalCents <= 0 {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, ErrNothingToPay)
	}

	req := domain.PaymentRequest{
		ReservationID: res.ID,
		AmountCents:   res.TotalCents,
		OrderID:       fmt.Sprintf("event_%d", res.ID),
		OrderName:     fmt.Sprintf("Event #%d", res.ID),
	}
	if sum, err := repos.Reservations().Summary(ctx, res.ID); err == nil {
		req.CustomerName = strings.TrimSpace(sum.FirstName + " " + sum.LastName)
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	init, err := gw.Initiate(gctx, req)
	cancel()
	if err != nil {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w: %v", op, ErrGatewayUnavailable, err)
	}

	rec := domain.PaymentRecord{
		ReservationID: res.ID,
		Provider:      provider,
		Status:        domain.PaymentRecordPending,
		AmountCents:   res.TotalCents,
		ProviderRef:   init.ProviderRef,
	}
	if err := repos.Payments().Create(ctx, &rec); err != nil {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("payment initiated",
		slog.Int64("reservation_id", res.ID),
		slog.String("provider", string(provider)),
		slog.String("provider_ref", init.ProviderRef),
		slog.Int64("amount_cents", rec.AmountCents),
	)

	return init, nil
}

// Verify asks the gateway for the outcome of a checkout and confirms it when
// completed. Gateway failures and unfinished payments leave the record pending.
func (s *Service) Verify(
	ctx context.Context,
	actor domain.Actor,
	provider domain.PaymentProvider,
	reservationID int64,
	providerRef string,
) (domain.Reservation, error) {
	const op = "service.payment.Verify"

	gw, ok := s.gateways[provider]
	if !ok {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrUnknownProvider)
	}

	repos := s.uow.Repos()

	rec, err := repos.Payments().GetByRef(ctx, provider, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrPaymentMismatch)
		}
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}
	if rec.ReservationID != reservationID {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrPaymentMismatch)
	}

	owned, err := repos.Reservations().Get(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
		}
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}
	if !canPay(actor, owned) {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	v, err := gw.Verify(gctx, providerRef)
	cancel()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w: %v", op, ErrGatewayUnavailable, err)
	}
	if !v.Completed {
		return domain.Reservation{}, fmt.Errorf("%s:%w: status %q", op, ErrPaymentNotCompleted, v.Status)
	}

	res, err := s.Confirm(ctx, ConfirmInput{
		Provider:      provider,
		ReservationID: reservationID,
		ProviderRef:   providerRef,
		AmountCents:   v.AmountCents,
		TransactionID: v.TransactionID,
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

type ConfirmInput struct {
	Provider      domain.PaymentProvider
	ReservationID int64
	ProviderRef   string
	AmountCents   int64
	TransactionID string
}

// Confirm applies a completed payment. A paid reservation is approved and
// rejects the pending requests that share a day with it. Confirming twice
// returns the reservation unchanged.
//
// Returns:
//   - error: ErrPaymentMismatch when the record is unknown, belongs elsewhere or the amount differs.
//   - error: domain.ConflictError when another approved reservation holds the dates.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (domain.Reservation, error) {
	const op = "service.payment.Confirm"

	var (
		out     domain.Reservation
		applied bool
	)

	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, after func(uow.AfterCommit)) error {
		reservations := repos.Reservations()

		res, err := lockReservation(ctx, reservations, in.ReservationID)
		if err != nil {
			return err
		}

		if _, done, err := repos.Payments().CompletedFor(ctx, res.ID); err != nil {
			return err
		} else if done {
			out = res
			return nil
		}

		rec, err := repos.Payments().GetByRef(ctx, in.Provider, in.ProviderRef)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentMismatch
			}
			return err
		}
		if rec.ReservationID != res.ID || rec.AmountCents != in.AmountCents {
			return ErrPaymentMismatch
		}

		existing, err := reservations.ListActiveInRange(ctx, res.ResourceID, res.Range)
		if err != nil {
			return err
		}
		if err := domain.ApprovedOverlapErr(existing, res.Range, res.ID); err != nil {
			return err
		}

		if err := repos.Payments().MarkCompleted(ctx, rec.ID, in.TransactionID); err != nil {
			return err
		}
		if !res.IsApproved() {
			if err := reservations.SetApproval(ctx, res.ID, domain.ApprovalApproved); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return domain.ConflictError{Kind: domain.RejectApprovedOverlap}
				}
				return err
			}
		}
		if err := reservations.SetPaid(ctx, res.ID); err != nil {
			return err
		}

		rejected, err := reservations.RejectPendingOverlapping(ctx, res.ResourceID, res.Range, res.ID)
		if err != nil {
			return err
		}

		res.Approval = domain.ApprovalApproved
		res.Payment = domain.PaymentPaid
		res.UpdatedAt = s.now()
		out = res
		applied = true

		after(func(ctx context.Context) {
			s.stats.Invalidate(ctx, res.ResourceID)
			s.notify(ctx, res.ID)
			s.publish(ctx, events.PaymentCompleted, res)
			for _, id := range rejected {
				s.publish(ctx, events.ReservationRejected, domain.Reservation{
					ID:         id,
					ResourceID: res.ResourceID,
					Range:      res.Range,
					Approval:   domain.ApprovalRejected,
				})
			}
		})

		return nil
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	if applied {
		s.logger.Info("payment confirmed",
			slog.Int64("reservation_id", out.ID),
			slog.String("provider", string(in.Provider)),
			slog.String("transaction_id", in.TransactionID),
		)
	}

	return out, nil
}

// HandleStripeWebhook confirms completed Checkout sessions. Other events are
// acknowledged and ignored.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "service.payment.HandleStripeWebhook"

	if s.webhooks == nil {
		return fmt.Errorf("%s:%w", op, ErrUnknownProvider)
	}

	r, ok, err := s.webhooks.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%s:%w: %v", op, ErrInvalidWebhook, err)
	}
	if !ok || !r.Verification.Completed {
		return nil
	}

	_, err = s.Confirm(ctx, ConfirmInput{
		Provider:      domain.ProviderStripe,
		ReservationID: r.ReservationID,
		ProviderRef:   r.Verification.ProviderRef,
		AmountCents:   r.Verification.AmountCents,
		TransactionID: r.Verification.TransactionID,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func lockReservation(ctx context.Context, reservations repository.Reservations, id int64) (domain.Reservation, error) {
	cur, err := reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, ErrReservationNotFound
		}
		return domain.Reservation{}, err
	}

	if err := reservations.LockResource(ctx, cur.ResourceID); err != nil {
		return domain.Reservation{}, err
	}

	res, err := reservations.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, ErrReservationNotFound
		}
		return domain.Reservation{}, err
	}

	return res, nil
}

func (s *Service) notify(ctx context.Context, reservationID int64) {
	if err := s.dispatcher.Dispatch(ctx, reservationID, notify.KindPaid); err != nil {
		s.logger.Error("notification enqueue failed",
			slog.Int64("reservation_id", reservationID),
			slog.String("kind", string(notify.KindPaid)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) publish(ctx context.Context, typ string, res domain.Reservation) {
	if err := s.publisher.Publish(ctx, events.ForReservation(typ, res, s.now())); err != nil {
		s.logger.Warn("event publish failed",
			slog.String("type", typ),
			slog.Int64("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

func canPay(actor domain.Actor, res domain.Reservation) bool {
	return actor.IsOperator() || res.UserID == actor.UserID
}
