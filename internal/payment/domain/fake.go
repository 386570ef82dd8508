package domain

import (
	"context"
	"fmt"
	"sync"
)

// ChargeCall records one ChargeCustomer invocation.
type ChargeCall struct {
	CustomerID  string
	AmountCents int64
	Currency    string
	Description string
}

// FakeProvider is an in-memory Provider for tests. It records every call
// and can be told to fail specific customers.
type FakeProvider struct {
	mu      sync.Mutex
	calls   []ChargeCall
	failing map[string]error
	seq     int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{failing: make(map[string]error)}
}

// FailCustomer makes subsequent charges for customerID return err.
func (p *FakeProvider) FailCustomer(customerID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[customerID] = err
}

func (p *FakeProvider) Calls() []ChargeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChargeCall, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *FakeProvider) ChargeCustomer(ctx context.Context, customerID string, amountCents int64, currency, description string) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, ChargeCall{
		CustomerID:  customerID,
		AmountCents: amountCents,
		Currency:    currency,
		Description: description,
	})
	if err, ok := p.failing[customerID]; ok {
		return nil, err
	}

	p.seq++
	return &Charge{
		ProviderChargeID: fmt.Sprintf("ch_fake_%d", p.seq),
		Status:           "succeeded",
		AmountCents:      amountCents,
		Currency:         currency,
	}, nil
}
