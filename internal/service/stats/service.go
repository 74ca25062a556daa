package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository"
	redisrepo "github.com/kirinyoku/venue-go/internal/repository/redis"
)

type Config struct {
	CacheTTL time.Duration
}

// Service builds the dashboard approval report. It only reads reservations.
type Service struct {
	reservations repository.Reservations
	cache        *redisrepo.Cache
	cfg          Config
	now          func() time.Time
	logger       *slog.Logger
}

func New(reservations repository.Reservations, cache *redisrepo.Cache, cfg Config, logger *slog.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return &Service{
		reservations: reservations,
		cache:        cache,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
}

// MonthlyApprovalCounts returns twelve buckets starting with the current month.
//
// Parameters:
//   - ctx: request-scoped context.
//   - resourceID: optional venue scope; nil reports across all venues.
func (s *Service) MonthlyApprovalCounts(ctx context.Context, resourceID *int64) ([]domain.MonthBucket, error) {
	const op = "service.stats.MonthlyApprovalCounts"

	anchor := s.now().UTC()

	load := func(ctx context.Context) ([]domain.MonthBucket, error) {
		from, to := domain.MonthWindow(anchor, domain.StatsWindowMonths)
		list, err := s.reservations.ListStartingBetween(ctx, resourceID, from, to)
		if err != nil {
			return nil, err
		}
		return domain.BucketByMonth(anchor, list), nil
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return out, nil
	}

	var scope int64
	if resourceID != nil {
		scope = *resourceID
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyMonthlyStats(scope, anchor), s.cfg.CacheTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Invalidate drops cached reports touched by a change on resourceID.
// Failures are logged; the TTL bounds staleness.
func (s *Service) Invalidate(ctx context.Context, resourceID int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.InvalidateStats(ctx, resourceID, s.now().UTC()); err != nil {
		s.logger.Warn("stats cache invalidation failed",
			slog.Int64("resource_id", resourceID),
			slog.String("error", err.Error()),
		)
	}
}
