// Package events publishes reservation lifecycle events for downstream
// consumers (analytics, audit, customer messaging).
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/venue-go/internal/domain"
)

const Exchange = "venuego.reservations"

const (
	ReservationCreated  = "reservation.created"
	ReservationApproved = "reservation.approved"
	ReservationRejected = "reservation.rejected"
	ReservationDeleted  = "reservation.deleted"
	PaymentCompleted    = "payment.completed"
)

type Event struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	ReservationID int64  `json:"reservation_id"`
	ResourceID    int64  `json:"resource_id"`
	UserID        int64  `json:"user_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Approval      string `json:"approval"`
	Payment       string `json:"payment"`
	TotalCents    int64  `json:"total_cents"`
	OccurredAt    string `json:"occurred_at"`
}

func ForReservation(typ string, res domain.Reservation, at time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          typ,
		ReservationID: res.ID,
		ResourceID:    res.ResourceID,
		UserID:        res.UserID,
		StartDate:     res.Range.Start.Format(time.DateOnly),
		EndDate:       res.Range.End.Format(time.DateOnly),
		Approval:      string(res.Approval),
		Payment:       string(res.Payment),
		TotalCents:    res.TotalCents,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
