package payment

import "errors"

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrForbidden           = errors.New("forbidden")
	ErrPaymentMismatch     = errors.New("payment does not match reservation")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrNothingToPay        = errors.New("reservation has nothing to pay")
	ErrAlreadyPaid         = errors.New("reservation already paid")
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrInvalidWebhook      = errors.New("invalid webhook")
)
