package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/notify"
	"github.com/kirinyoku/venue-go/internal/repository"
)

type SummaryLoader interface {
	Summary(ctx context.Context, id int64) (domain.ReservationSummary, error)
}

// NoticeHandler turns a notice task into an SMS or email.
type NoticeHandler struct {
	summaries SummaryLoader
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewNoticeHandler(summaries SummaryLoader, notifier notify.Notifier, logger *slog.Logger) *NoticeHandler {
	return &NoticeHandler{summaries: summaries, notifier: notifier, logger: logger}
}

// ProcessTask returns an error to let asynq retry transient delivery failures.
// Bad payloads, deleted reservations and customers without contact details
// are not retried.
func (h *NoticeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	const op = "queue.NoticeHandler.ProcessTask"

	var p NoticePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("invalid notice payload", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %v: %w", op, err, asynq.SkipRetry)
	}

	log := h.logger.With(slog.Int64("reservation_id", p.ReservationID), slog.String("kind", string(p.Kind)))

	summary, err := h.summaries.Summary(ctx, p.ReservationID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("reservation gone, dropping notice")
		return fmt.Errorf("%s: %v: %w", op, err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := notify.Deliver(ctx, h.notifier, p.Kind, summary); err != nil {
		if errors.Is(err, notify.ErrNoContact) || errors.Is(err, notify.ErrChannelDisabled) {
			log.Warn("notice not deliverable", slog.String("error", err.Error()))
			return fmt.Errorf("%s: %v: %w", op, err, asynq.SkipRetry)
		}
		log.Error("notice delivery failed", slog.String("error", err.Error()))
		return fmt.Errorf("%s:%w", op, err)
	}

	log.Info("notice delivered")
	return nil
}

type WorkerConfig struct {
	Concurrency int
}

type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewWorker(redisOpt asynq.RedisConnOpt, cfg WorkerConfig, h *NoticeHandler, logger *slog.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueNotifications: 1,
		},
		Logger: slogAdapter{logger.With(slog.String("component", "asynq"))},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("task failed",
				slog.String("type", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.String("error", err.Error()),
			)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeReservationNotice, h)

	return &Worker{srv: srv, mux: mux}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

// Shutdown waits for active tasks up to the server's shutdown timeout.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...any)  { a.l.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...any) { a.l.Error(fmt.Sprint(args...)) }

func (a slogAdapter) Fatal(args ...any) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
