// Package khalti is a client for the Khalti ePayment v2 API.
package khalti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirinyoku/venue-go/internal/domain"
)

const (
	DefaultBaseURL = "https://dev.khalti.com/api/v2"

	StatusCompleted = "Completed"
)

var ErrUnexpectedResponse = errors.New("khalti: unexpected response")

type Config struct {
	BaseURL     string
	SecretKey   string
	FrontendURL string
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type customerInfo struct {
	Name string `json:"name"`
}

type productDetail struct {
	Identity   string `json:"identity"`
	Name       string `json:"name"`
	TotalPrice int64  `json:"total_price"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
}

type initiateRequest struct {
	ReturnURL         string          `json:"return_url"`
	WebsiteURL        string          `json:"website_url"`
	Amount            int64           `json:"amount"`
	PurchaseOrderID   string          `json:"purchase_order_id"`
	PurchaseOrderName string          `json:"purchase_order_name"`
	CustomerInfo      customerInfo    `json:"customer_info"`
	ProductDetails    []productDetail `json:"product_details"`
}

type initiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

type lookupResponse struct {
	Pidx          string `json:"pidx"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// Initiate opens a payment. Amounts are already in paisa.
func (c *Client) Initiate(ctx context.Context, req domain.PaymentRequest) (domain.PaymentInitiation, error) {
	const op = "khalti.Client.Initiate"

	name := req.CustomerName
	if name == "" {
		name = "Guest User"
	}

	body := initiateRequest{
		ReturnURL:         c.cfg.FrontendURL + "/payment/success",
		WebsiteURL:        c.cfg.FrontendURL,
		Amount:            req.AmountCents,
		PurchaseOrderID:   req.OrderID,
		PurchaseOrderName: req.OrderName,
		CustomerInfo:      customerInfo{Name: name},
		ProductDetails: []productDetail{{
			Identity:   req.OrderID,
			Name:       req.OrderName,
			TotalPrice: req.AmountCents,
			Quantity:   1,
			UnitPrice:  req.AmountCents,
		}},
	}

	var out initiateResponse
	if err := c.post(ctx, "/epayment/initiate/", body, &out); err != nil {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, err)
	}
	if out.Pidx == "" || out.PaymentURL == "" {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w: missing pidx or payment_url", op, ErrUnexpectedResponse)
	}

	return domain.PaymentInitiation{ProviderRef: out.Pidx, RedirectURL: out.PaymentURL}, nil
}

// Verify looks up a payment by pidx.
func (c *Client) Verify(ctx context.Context, pidx string) (domain.PaymentVerification, error) {
	const op = "khalti.Client.Verify"

	var out lookupResponse
	if err := c.post(ctx, "/epayment/lookup/", map[string]string{"pidx": pidx}, &out); err != nil {
		return domain.PaymentVerification{}, fmt.Errorf("%s:%w", op, err)
	}

	ref := out.Pidx
	if ref == "" {
		ref = pidx
	}

	return domain.PaymentVerification{
		ProviderRef:   ref,
		Completed:     out.Status == StatusCompleted,
		Status:        out.Status,
		AmountCents:   out.TotalAmount,
		TransactionID: out.TransactionID,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrUnexpectedResponse, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	return nil
}
