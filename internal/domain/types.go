package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceCategory is one of the fixed add-on groups a venue can offer.
type ServiceCategory string

const (
	CategoryMultimedia    ServiceCategory = "Multimedia"
	CategoryMusical       ServiceCategory = "Musical"
	CategoryLuxury        ServiceCategory = "Luxury"
	CategoryEntertainment ServiceCategory = "Entertainment"
	CategoryMeeting       ServiceCategory = "Meeting"
	CategoryBeautyDecor   ServiceCategory = "BeautyDecor"
	CategoryAdventure     ServiceCategory = "Adventure"
	CategoryPartyPalace   ServiceCategory = "PartyPalace"
	CategoryCateringTent  ServiceCategory = "CateringTent"
)

// Categories lists every service category in display order.
var Categories = []ServiceCategory{
	CategoryMultimedia,
	CategoryMusical,
	CategoryLuxury,
	CategoryEntertainment,
	CategoryMeeting,
	CategoryBeautyDecor,
	CategoryAdventure,
	CategoryPartyPalace,
	CategoryCateringTent,
}

// ParseCategory reports whether s names a known category, ignoring case.
func ParseCategory(s string) (ServiceCategory, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type PaymentProvider string

const (
	ProviderKhalti PaymentProvider = "khalti"
	ProviderStripe PaymentProvider = "stripe"
)

type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Actor is the authenticated caller as reported by the upstream token verifier.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsOperator() bool { return a.Role == RoleAdmin }

type User struct {
	ID        int64
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

// Resource is a bookable venue ("product").
type Resource struct {
	ID       int64
	Title    string
	Address  string
	IsActive bool
}

// ServiceLineItem is a priced add-on from a resource's catalog.
// OfferPriceCents is the discount subtracted from PriceCents.
type ServiceLineItem struct {
	ID              int64
	ResourceID      int64
	Category        ServiceCategory
	Name            string
	PriceCents      int64
	OfferPriceCents int64
}

// Selections maps a category to the catalog ids picked from it.
type Selections map[ServiceCategory][]int64

// Order is a priced set of line items ready to be attached to a reservation.
type Order struct {
	Items      []ServiceLineItem
	TotalCents int64
}

// ReservedService is the price snapshot of a line item attached to a reservation.
type ReservedService struct {
	ServiceID       int64
	Category        ServiceCategory
	Name            string
	PriceCents      int64
	OfferPriceCents int64
}

type Reservation struct {
	ID          int64
	UserID      int64
	ResourceID  int64
	EventTypeID int64
	Range       DateRange
	StartAt     *time.Time
	EndAt       *time.Time
	Services    []ReservedService
	TotalCents  int64
	Approval    ApprovalStatus
	Payment     PaymentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Reservation) IsApproved() bool { return r.Approval == ApprovalApproved }
func (r Reservation) IsPaid() bool     { return r.Payment == PaymentPaid }

type PaymentRecord struct {
	ID            uuid.UUID
	ReservationID int64
	Provider      PaymentProvider
	Status        PaymentRecordStatus
	AmountCents   int64
	ProviderRef   string
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentRequest is what a gateway needs to open a checkout.
type PaymentRequest struct {
	ReservationID int64
	AmountCents   int64
	OrderID       string
	OrderName     string
	CustomerName  string
}

// PaymentInitiation is what a gateway returns when a checkout is opened.
type PaymentInitiation struct {
	ProviderRef string
	RedirectURL string
}

// PaymentVerification is the provider-side state of a checkout.
type PaymentVerification struct {
	ProviderRef   string
	Completed     bool
	Status        string
	AmountCents   int64
	TransactionID string
}

// ReservationSummary carries what notifications need to describe a booking.
type ReservationSummary struct {
	ReservationID int64
	FirstName     string
	LastName      string
	Phone         string
	Email         string
	ResourceTitle string
	ServiceNames  []string
	TotalCents    int64
	Range         DateRange
}

// MonthBucket is one month of the dashboard approval report.
type MonthBucket struct {
	Month       string `json:"month"`
	Year        int    `json:"year"`
	MonthNumber int    `json:"month_number"`
	Approved    int64  `json:"approved"`
	Pending     int64  `json:"pending"`
}

// ReservationFilter narrows operator listings.
type ReservationFilter struct {
	ResourceID *int64
	UserID     *int64
	Month      int
	Year       int
	Search     string
	Limit      int
	Offset     int
}

// ReservationReportRow is one line of the operator booking export.
type ReservationReportRow struct {
	ReservationID int64
	CustomerName  string
	Email         string
	ResourceTitle string
	EventType     string
	Range         DateRange
	TotalCents    int64
	Approval      ApprovalStatus
	Payment       PaymentStatus
	CreatedAt     time.Time
}

type ReservationPage struct {
	Items      []Reservation
	TotalCount int64
}
