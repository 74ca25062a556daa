package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

type SMSConfig struct {
	BaseURL    string
	APIKey     string
	SenderID   string
	Timeout    time.Duration
	RatePerSec float64
}

// SMSSender talks to an HTTP GET style SMS gateway
// (key, contacts, senderid, msg, responsetype=json).
type SMSSender struct {
	cfg     SMSConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewSMSSender(cfg SMSConfig) *SMSSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SenderID == "" {
		cfg.SenderID = "FSN_Alert"
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &SMSSender{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type smsResponse struct {
	Status  any    `json:"status"`
	Message string `json:"message"`
}

func (s *SMSSender) SendSMS(ctx context.Context, phone, text string) error {
	const op = "notify.SMSSender.SendSMS"

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	q := url.Values{}
	q.Set("key", s.cfg.APIKey)
	q.Set("contacts", phone)
	q.Set("senderid", s.cfg.SenderID)
	q.Set("msg", text)
	q.Set("responsetype", "json")

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %w: status %d: %s", op, ErrDeliveryFailed, resp.StatusCode, body)
	}

	var out smsResponse
	if err := json.Unmarshal(body, &out); err == nil && isFailureStatus(out.Status) {
		return fmt.Errorf("%s: %w: %s", op, ErrDeliveryFailed, out.Message)
	}

	return nil
}

// isFailureStatus reads the gateway's loosely typed status field.
func isFailureStatus(v any) bool {
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		return t == "error" || t == "failed" || t == "false"
	default:
		return false
	}
}
