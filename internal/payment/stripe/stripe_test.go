package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airfieldhq/clubops/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeCustomerSucceeds(t *testing.T) {
	var gotAuth string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"amount":      r.PostFormValue("amount"),
			"currency":    r.PostFormValue("currency"),
			"customer":    r.PostFormValue("customer"),
			"confirm":     r.PostFormValue("confirm"),
			"off_session": r.PostFormValue("off_session"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":17500,"currency":"usd"}`))
	}))
	defer srv.Close()

	charge, err := New("sk_test_abc", srv.URL).ChargeCustomer(context.Background(), "cus_123", 17500, "USD", "Flight time invoice")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_abc", gotAuth)
	assert.Equal(t, "17500", gotForm["amount"])
	assert.Equal(t, "usd", gotForm["currency"])
	assert.Equal(t, "cus_123", gotForm["customer"])
	assert.Equal(t, "true", gotForm["confirm"])
	assert.Equal(t, "true", gotForm["off_session"])

	assert.Equal(t, "pi_123", charge.ProviderChargeID)
	assert.Equal(t, "succeeded", charge.Status)
	assert.Equal(t, int64(17500), charge.AmountCents)
	assert.Equal(t, "USD", charge.Currency)
}

func TestChargeCustomerSurfacesStripeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	_, err := New("sk_test_abc", srv.URL).ChargeCustomer(context.Background(), "cus_123", 17500, "usd", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaptureFailed)
	assert.Contains(t, err.Error(), "Your card was declined.")
}

func TestChargeCustomerRejectsNonSucceededIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","status":"requires_action","amount":17500,"currency":"usd"}`))
	}))
	defer srv.Close()

	_, err := New("sk_test_abc", srv.URL).ChargeCustomer(context.Background(), "cus_123", 17500, "usd", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaptureFailed)
	assert.Contains(t, err.Error(), "requires_action")
}

func TestChargeCustomerValidation(t *testing.T) {
	_, err := New("", "").ChargeCustomer(context.Background(), "cus_123", 1000, "usd", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New("sk_test_abc", "").ChargeCustomer(context.Background(), "", 1000, "usd", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidCharge)

	_, err = New("sk_test_abc", "").ChargeCustomer(context.Background(), "cus_123", 0, "usd", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidCharge)
}
