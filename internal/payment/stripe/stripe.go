// Package stripe captures payments through the Stripe PaymentIntents REST
// API with confirmation against the customer's default payment method.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airfieldhq/clubops/internal/payment/domain"
)

const defaultBaseURL = "https://api.stripe.com"

type paymentIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func New(apiKey, baseURL string) *Adapter {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) ChargeCustomer(ctx context.Context, customerID string, amountCents int64, currency, description string) (*domain.Charge, error) {
	if a.apiKey == "" {
		return nil, domain.ErrInvalidConfig
	}
	if strings.TrimSpace(customerID) == "" || amountCents <= 0 {
		return nil, domain.ErrInvalidCharge
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(amountCents, 10))
	values.Set("currency", strings.ToLower(currency))
	values.Set("customer", customerID)
	values.Set("description", description)
	values.Set("confirm", "true")
	values.Set("off_session", "true")
	values.Set("automatic_payment_methods[enabled]", "false")
	values.Set("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/payment_intents", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&stripeErr); decodeErr == nil && stripeErr.Error.Message != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrCaptureFailed, stripeErr.Error.Message)
		}
		return nil, fmt.Errorf("%w: stripe returned %d", domain.ErrCaptureFailed, resp.StatusCode)
	}

	var intent paymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, err
	}
	if intent.Status != "succeeded" {
		return nil, fmt.Errorf("%w: payment intent status %s", domain.ErrCaptureFailed, intent.Status)
	}

	return &domain.Charge{
		ProviderChargeID: intent.ID,
		Status:           intent.Status,
		AmountCents:      intent.Amount,
		Currency:         strings.ToUpper(intent.Currency),
	}, nil
}
