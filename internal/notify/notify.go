// Package notify renders booking notifications and delivers them over SMS
// or email. Delivery is best-effort: callers log failures and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/venue-go/internal/domain"
)

var (
	ErrNoContact       = errors.New("no phone or email on file")
	ErrChannelDisabled = errors.New("notification channel not configured")
	ErrDeliveryFailed  = errors.New("notification delivery failed")
)

type Kind string

const (
	KindApproved Kind = "approved"
	KindPaid     Kind = "paid"
)

type SMS interface {
	SendSMS(ctx context.Context, phone, text string) error
}

type Email interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type Notifier interface {
	SMS
	Email
}

// Channels routes to whichever senders are configured. A nil sender reports
// ErrChannelDisabled.
type Channels struct {
	SMS   SMS
	Email Email
}

func (c Channels) SendSMS(ctx context.Context, phone, text string) error {
	if c.SMS == nil {
		return ErrChannelDisabled
	}
	return c.SMS.SendSMS(ctx, phone, text)
}

func (c Channels) SendEmail(ctx context.Context, to, subject, body string) error {
	if c.Email == nil {
		return ErrChannelDisabled
	}
	return c.Email.SendEmail(ctx, to, subject, body)
}

// Deliver sends the message for kind. SMS is the primary channel. Email is
// used when no phone number is on file or SMS is not configured.
func Deliver(ctx context.Context, n Notifier, kind Kind, s domain.ReservationSummary) error {
	const op = "notify.Deliver"

	if s.Phone == "" && s.Email == "" {
		return fmt.Errorf("%s:%w", op, ErrNoContact)
	}

	text := Render(kind, s)

	if s.Phone != "" {
		err := n.SendSMS(ctx, s.Phone, text)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrChannelDisabled) || s.Email == "" {
			return fmt.Errorf("%s: sms:%w", op, err)
		}
	}

	if err := n.SendEmail(ctx, s.Email, Subject(kind, s), text); err != nil {
		return fmt.Errorf("%s: email:%w", op, err)
	}

	return nil
}

func Subject(kind Kind, s domain.ReservationSummary) string {
	if kind == KindPaid {
		return fmt.Sprintf("Payment received for %s", s.ResourceTitle)
	}
	return fmt.Sprintf("Your booking for %s is approved", s.ResourceTitle)
}

func Render(kind Kind, s domain.ReservationSummary) string {
	names := s.ResourceTitle
	if len(s.ServiceNames) > 0 {
		names = strings.Join(s.ServiceNames, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n", s.FirstName)
	if kind == KindPaid {
		fmt.Fprintf(&b, "We received your payment for %q. Your booking is CONFIRMED.\n\n", s.ResourceTitle)
	} else {
		fmt.Fprintf(&b, "Your booking for %q has been APPROVED.\n\n", s.ResourceTitle)
	}
	fmt.Fprintf(&b, "Booked Service: %s\n", names)
	fmt.Fprintf(&b, "Total: Rs. %s\n\n", FormatAmount(s.TotalCents))
	b.WriteString("Thank you for choosing us!")

	return b.String()
}

// FormatAmount prints minor units as rupees with two decimals.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
