package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kirinyoku/venue-go/internal/notify"
)

const (
	TypeReservationNotice = "notify:reservation"
	QueueNotifications    = "notifications"

	noticeMaxRetry = 5
	noticeTimeout  = 30 * time.Second
)

type NoticePayload struct {
	ReservationID int64       `json:"reservation_id"`
	Kind          notify.Kind `json:"kind"`
}

// NewNoticeTask builds the notification task. The task id is derived from the
// reservation and kind so a repeated enqueue collapses into the pending task.
func NewNoticeTask(p NoticePayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}

	task := asynq.NewTask(TypeReservationNotice, b)
	opts := []asynq.Option{
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(noticeMaxRetry),
		asynq.Timeout(noticeTimeout),
		asynq.TaskID(noticeTaskID(p)),
	}

	return task, opts, nil
}

func noticeTaskID(p NoticePayload) string {
	return fmt.Sprintf("notice:%d:%s", p.ReservationID, p.Kind)
}
