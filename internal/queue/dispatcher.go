package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/kirinyoku/venue-go/internal/notify"
)

type Dispatcher struct {
	client *asynq.Client
}

func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// Dispatch enqueues a notification for the reservation. A task already
// queued for the same reservation and kind counts as success.
func (d *Dispatcher) Dispatch(ctx context.Context, reservationID int64, kind notify.Kind) error {
	const op = "queue.Dispatcher.Dispatch"

	task, opts, err := NewNoticeTask(NoticePayload{ReservationID: reservationID, Kind: kind})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if _, err := d.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
