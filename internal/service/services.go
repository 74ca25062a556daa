package service

import (
	"log/slog"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/events"
	redisrepo "github.com/kirinyoku/venue-go/internal/repository/redis"
	"github.com/kirinyoku/venue-go/internal/service/booking"
	"github.com/kirinyoku/venue-go/internal/service/payment"
	"github.com/kirinyoku/venue-go/internal/service/stats"
	"github.com/kirinyoku/venue-go/internal/uow"
)

type Services struct {
	Booking *booking.Service
	Payment *payment.Service
	Stats   *stats.Service
}

type Config struct {
	Stats   stats.Config
	Payment payment.Config
}

type Deps struct {
	UoW        *uow.UoW
	Cache      *redisrepo.Cache
	Limiter    booking.RateLimiter
	Dispatcher booking.Dispatcher
	Publisher  events.Publisher
	Gateways   map[domain.PaymentProvider]payment.Gateway
	Webhooks   payment.WebhookParser
}

func NewServices(deps Deps, cfg Config, logger *slog.Logger) *Services {
	st := stats.New(deps.UoW.Repos().Reservations(), deps.Cache, cfg.Stats, logger)

	return &Services{
		Booking: booking.New(deps.UoW, st, deps.Dispatcher, deps.Publisher, deps.Limiter, logger),
		Payment: payment.New(deps.UoW, deps.Gateways, deps.Webhooks, st, deps.Dispatcher, deps.Publisher, cfg.Payment, logger),
		Stats:   st,
	}
}
