package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/report"
	redisrepo "github.com/kirinyoku/venue-go/internal/repository/redis"
	"github.com/kirinyoku/venue-go/internal/service"
	"github.com/kirinyoku/venue-go/internal/service/booking"
	"github.com/kirinyoku/venue-go/internal/service/order"
	"github.com/kirinyoku/venue-go/internal/service/payment"
)

const (
	maxWebhookBody = 64 << 10
	statsMaxAge    = time.Minute
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// signed by Stripe, no caller identity
	r.POST("/webhooks/stripe", handleStripeWebhook(svcs))

	api := r.Group("", IdentityFromHeaders())
	{
		api.POST("/reservations", handleCreateReservation(svcs, idem))
		api.GET("/reservations", handleListReservations(svcs))
		api.GET("/reservations/export", handleExportReservations(svcs))
		api.GET("/reservations/:id", handleGetReservation(svcs))
		api.PATCH("/reservations/:id/approval", handleSetApproval(svcs))
		api.DELETE("/reservations/:id", handleDeleteReservation(svcs))
		api.GET("/users/:id/reservations", handleListUserReservations(svcs))

		api.GET("/stats/monthly", handleMonthlyStats(svcs))

		api.POST("/payments/:provider/initiate", handleInitiatePayment(svcs))
		api.POST("/payments/:provider/verify", handleVerifyPayment(svcs))
	}

	return r
}

// @Summary  Create reservation (idempotent)
// @Param    X-User-ID       header  int     true   "caller id"
// @Param    Idempotency-Key header  string  false  "replay key"
// @Param    req body  CreateReservationRequest true "payload"
// @Success  201 {object} ReservationResponse
// @Failure  400 {object} ErrorResponse "bad dates, event type or services"
// @Failure  404 {object} ErrorResponse "venue or on-behalf user not found"
// @Failure  409 {object} ErrorResponse "date conflict / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /reservations [post]
func handleCreateReservation(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)

		var req CreateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in, msg := req.toInput()
		if msg != "" {
			badRequest(c, msg)
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemReservation(actor.UserID, idemKey)

			state, payload, err := idem.Begin(c.Request.Context(), idemStorageKey)
			if err != nil {
				respondErr(c, err)
				return
			}
			switch state {
			case redisrepo.IdemDone:
				c.Header(idempotencyHeader, idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			case redisrepo.IdemInFlight:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		res, err := svcs.Booking.Create(c.Request.Context(), actor, in)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toReservationResponse(res)

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.Complete(c.Request.Context(), idemStorageKey, string(b))
			c.Header(idempotencyHeader, idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func (r CreateReservationRequest) toInput() (booking.CreateInput, string) {
	start, err := time.Parse(time.DateOnly, r.StartDate)
	if err != nil {
		return booking.CreateInput{}, "invalid start_date (YYYY-MM-DD)"
	}
	end, err := time.Parse(time.DateOnly, r.EndDate)
	if err != nil {
		return booking.CreateInput{}, "invalid end_date (YYYY-MM-DD)"
	}

	// unknown categories are ignored
	sel := make(domain.Selections, len(r.Services))
	for name, ids := range r.Services {
		if cat, ok := domain.ParseCategory(name); ok {
			sel[cat] = append(sel[cat], ids...)
		}
	}

	return booking.CreateInput{
		ResourceID:  r.ResourceID,
		EventTypeID: r.EventTypeID,
		UserID:      r.UserID,
		StartDate:   start,
		EndDate:     end,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Selections:  sel,
	}, ""
}

// @Summary  Get reservation
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  ReservationResponse
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		res, err := svcs.Booking.Get(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponse(res))
	}
}

// @Summary  List reservations (operators)
// @Param    resource_id query int    false "venue"
// @Param    month       query int    false "1-12"
// @Param    year        query int    false "year"
// @Param    search      query string false "customer or venue"
// @Param    limit       query int    false "page size"
// @Param    offset      query int    false "offset"
// @Success  200 {object} ReservationListResponse
// @Router   /reservations [get]
func handleListReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := parseFilter(c)
		if !ok {
			return
		}
		page, err := svcs.Booking.List(c.Request.Context(), actorFrom(c), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toListResponse(page, f))
	}
}

// @Summary  Export a month of reservations as xlsx
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param    month       query int    true  "month (1-12)"
// @Param    year        query int    true  "year"
// @Param    resource_id query int    false "venue"
// @Param    search      query string false "customer or venue"
// @Success  200 {file}   file
// @Failure  400 {object} ErrorResponse
// @Failure  403 {object} ErrorResponse
// @Router   /reservations/export [get]
func handleExportReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := parseFilter(c)
		if !ok {
			return
		}
		rows, err := svcs.Booking.Export(c.Request.Context(), actorFrom(c), f)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Content-Type", report.ContentType)
		c.Header("Content-Disposition", `attachment; filename="`+report.FileName(f.Month, f.Year)+`"`)
		c.Status(http.StatusOK)
		if err := report.WriteReservations(c.Writer, rows); err != nil {
			_ = c.Error(err)
		}
	}
}

// @Summary  List a user's reservations
// @Param    id  path  int  true  "User ID"
// @Success  200 {object} ReservationListResponse
// @Router   /users/{id}/reservations [get]
func handleListUserReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		f, ok := parseFilter(c)
		if !ok {
			return
		}
		page, err := svcs.Booking.ListByUser(c.Request.Context(), actorFrom(c), userID, f)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toListResponse(page, f))
	}
}

// @Summary  Approve or reject a reservation (operators)
// @Param    id  path  int  true  "Reservation ID"
// @Param    req body  SetApprovalRequest true "payload"
// @Success  200 {object} ReservationResponse
// @Failure  409 {object} ErrorResponse
// @Router   /reservations/{id}/approval [patch]
func handleSetApproval(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req SetApprovalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svcs.Booking.SetApproval(c.Request.Context(), actorFrom(c), id, *req.Approve)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponse(res))
	}
}

// @Summary  Delete reservation (operators)
// @Param    id  path  int  true  "Reservation ID"
// @Success  204
// @Router   /reservations/{id} [delete]
func handleDeleteReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Booking.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Monthly approved/pending counts (operators)
// @Param    resource_id query int false "venue"
// @Success  200 {array} domain.MonthBucket
// @Router   /stats/monthly [get]
func handleMonthlyStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).IsOperator() {
			respondErr(c, booking.ErrForbidden)
			return
		}

		var resourceID *int64
		if s := c.Query("resource_id"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				badRequest(c, "invalid resource_id")
				return
			}
			resourceID = &v
		}

		buckets, err := svcs.Stats.MonthlyApprovalCounts(c.Request.Context(), resourceID)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCached(c, buckets, statsMaxAge)
	}
}

// @Summary  Open a hosted checkout
// @Param    provider path string true "khalti | stripe"
// @Param    req body  InitiatePaymentRequest true "payload"
// @Success  201 {object} PaymentInitiationResponse
// @Failure  403 {object} ErrorResponse
// @Failure  502 {object} ErrorResponse
// @Router   /payments/{provider}/initiate [post]
func handleInitiatePayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		provider := domain.PaymentProvider(strings.ToLower(c.Param("provider")))

		init, err := svcs.Payment.Initiate(c.Request.Context(), actorFrom(c), provider, req.ReservationID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, PaymentInitiationResponse{ProviderRef: init.ProviderRef, RedirectURL: init.RedirectURL})
	}
}

// @Summary  Verify a checkout and confirm the reservation
// @Param    provider path string true "khalti | stripe"
// @Param    req body  VerifyPaymentRequest true "payload"
// @Success  200 {object} ReservationResponse
// @Failure  402 {object} ErrorResponse "not completed"
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /payments/{provider}/verify [post]
func handleVerifyPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		provider := domain.PaymentProvider(strings.ToLower(c.Param("provider")))

		res, err := svcs.Payment.Verify(c.Request.Context(), actorFrom(c), provider, req.ReservationID, req.ProviderRef)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponse(res))
	}
}

// @Summary  Stripe webhook
// @Success  200
// @Failure  400 {object} ErrorResponse
// @Router   /webhooks/stripe [post]
func handleStripeWebhook(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			badRequest(c, "unreadable body")
			return
		}
		if err := svcs.Payment.HandleStripeWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusOK)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFilter(c *gin.Context) (domain.ReservationFilter, bool) {
	f := domain.ReservationFilter{
		Month:  parseIntDefault(c.Query("month"), 0),
		Year:   parseIntDefault(c.Query("year"), 0),
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  parseIntDefault(c.Query("limit"), 20),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if f.Month < 0 || f.Month > 12 {
		badRequest(c, "invalid month")
		return f, false
	}
	if s := c.Query("resource_id"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			badRequest(c, "invalid resource_id")
			return f, false
		}
		f.ResourceID = &v
	}
	return f, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl booking.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: rl.Error()})
		return
	}

	var ce domain.ConflictError
	if errors.As(err, &ce) {
		c.JSON(http.StatusConflict, gin.H{"error": ce.Error(), "kind": ce.Kind.String()})
		return
	}

	var sel order.InvalidSelectionError
	if errors.As(err, &sel) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: sel.Error()})
		return
	}

	switch {
	case errors.Is(err, booking.ErrReservationNotFound),
		errors.Is(err, payment.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "reservation not found"})
	case errors.Is(err, booking.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "venue not found"})
	case errors.Is(err, booking.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	case errors.Is(err, payment.ErrUnknownProvider):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown payment provider"})
	case errors.Is(err, booking.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date range"})
	case errors.Is(err, booking.ErrReportPeriod):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "month and year are required"})
	case errors.Is(err, booking.ErrInvalidEventType):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown event type"})
	case errors.Is(err, booking.ErrUnknownReference):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "reservation references an unknown record"})
	case errors.Is(err, payment.ErrNothingToPay):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "reservation has nothing to pay"})
	case errors.Is(err, payment.ErrInvalidWebhook):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid webhook"})
	case errors.Is(err, booking.ErrForbidden),
		errors.Is(err, payment.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, booking.ErrResourceInactive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "venue is not accepting bookings"})
	case errors.Is(err, booking.ErrReservationPaid):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "paid reservations cannot be rejected"})
	case errors.Is(err, payment.ErrPaymentMismatch):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "payment does not match reservation"})
	case errors.Is(err, payment.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "reservation already paid"})
	case errors.Is(err, payment.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: "payment not completed"})
	case errors.Is(err, payment.ErrGatewayUnavailable):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment gateway unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
