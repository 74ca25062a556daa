package httpgin

import (
	"time"

	"github.com/kirinyoku/venue-go/internal/domain"
)

type CreateReservationRequest struct {
	ResourceID  int64 `json:"resource_id" binding:"required,gt=0"`
	EventTypeID int64 `json:"event_type_id" binding:"required,gt=0"`
	// UserID books on behalf of another user. Operators only.
	UserID    int64  `json:"user_id"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	// Services maps a category name to the selected catalog ids.
	Services map[string][]int64 `json:"services"`
}

type SetApprovalRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

type InitiatePaymentRequest struct {
	ReservationID int64 `json:"reservation_id" binding:"required,gt=0"`
}

type VerifyPaymentRequest struct {
	ReservationID int64  `json:"reservation_id" binding:"required,gt=0"`
	ProviderRef   string `json:"provider_ref" binding:"required"`
}

type ReservedServiceResponse struct {
	ServiceID       int64  `json:"service_id"`
	Category        string `json:"category"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	OfferPriceCents int64  `json:"offer_price_cents"`
}

type ReservationResponse struct {
	ID          int64                     `json:"id"`
	UserID      int64                     `json:"user_id"`
	ResourceID  int64                     `json:"resource_id"`
	EventTypeID int64                     `json:"event_type_id,omitempty"`
	StartDate   string                    `json:"start_date"`
	EndDate     string                    `json:"end_date"`
	StartAt     *time.Time                `json:"start_at,omitempty"`
	EndAt       *time.Time                `json:"end_at,omitempty"`
	Services    []ReservedServiceResponse `json:"services"`
	TotalCents  int64                     `json:"total_cents"`
	Approval    string                    `json:"approval_status"`
	Payment     string                    `json:"payment_status"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

type ReservationListResponse struct {
	Items      []ReservationResponse `json:"items"`
	TotalCount int64                 `json:"total_count"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

type PaymentInitiationResponse struct {
	ProviderRef string `json:"provider_ref"`
	RedirectURL string `json:"payment_url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toReservationResponse(r domain.Reservation) ReservationResponse {
	services := make([]ReservedServiceResponse, 0, len(r.Services))
	for _, s := range r.Services {
		services = append(services, ReservedServiceResponse{
			ServiceID:       s.ServiceID,
			Category:        string(s.Category),
			Name:            s.Name,
			PriceCents:      s.PriceCents,
			OfferPriceCents: s.OfferPriceCents,
		})
	}

	return ReservationResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		ResourceID:  r.ResourceID,
		EventTypeID: r.EventTypeID,
		StartDate:   r.Range.Start.Format(time.DateOnly),
		EndDate:     r.Range.End.Format(time.DateOnly),
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
		Services:    services,
		TotalCents:  r.TotalCents,
		Approval:    string(r.Approval),
		Payment:     string(r.Payment),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toListResponse(p domain.ReservationPage, f domain.ReservationFilter) ReservationListResponse {
	items := make([]ReservationResponse, 0, len(p.Items))
	for _, r := range p.Items {
		items = append(items, toReservationResponse(r))
	}
	return ReservationListResponse{Items: items, TotalCount: p.TotalCount, Limit: f.Limit, Offset: f.Offset}
}
