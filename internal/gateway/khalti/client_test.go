package khalti

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/domain"
)

func TestInitiate(t *testing.T) {
	var got initiateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/epayment/initiate/", r.URL.Path)
		assert.Equal(t, "Key secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"pidx":"px1","payment_url":"https://pay.example/px1"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api/v2/", SecretKey: "secret", FrontendURL: "https://venue.example"})

	init, err := c.Initiate(context.Background(), domain.PaymentRequest{
		ReservationID: 5, AmountCents: 40000, OrderID: "event_5", OrderName: "Event #5",
	})
	require.NoError(t, err)
	assert.Equal(t, "px1", init.ProviderRef)
	assert.Equal(t, "https://pay.example/px1", init.RedirectURL)

	assert.Equal(t, int64(40000), got.Amount)
	assert.Equal(t, "event_5", got.PurchaseOrderID)
	assert.Equal(t, "https://venue.example/payment/success", got.ReturnURL)
	assert.Equal(t, "Guest User", got.CustomerInfo.Name)
	require.Len(t, got.ProductDetails, 1)
	assert.Equal(t, int64(40000), got.ProductDetails[0].UnitPrice)
}

func TestInitiateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Initiate(context.Background(), domain.PaymentRequest{AmountCents: 100})
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epayment/lookup/", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		status := "Pending"
		if body["pidx"] == "done" {
			status = "Completed"
		}
		_ = json.NewEncoder(w).Encode(lookupResponse{Pidx: body["pidx"], TotalAmount: 40000, Status: status, TransactionID: "txn123"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	v, err := c.Verify(context.Background(), "done")
	require.NoError(t, err)
	assert.True(t, v.Completed)
	assert.Equal(t, int64(40000), v.AmountCents)
	assert.Equal(t, "txn123", v.TransactionID)

	v, err = c.Verify(context.Background(), "wait")
	require.NoError(t, err)
	assert.False(t, v.Completed)
	assert.Equal(t, "Pending", v.Status)
}
