// Package payments provides interfaces for payment processing
package payments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Intent statuses reported by providers
const (
	StatusRequiresPayment = "requires_payment"
	StatusSucceeded       = "succeeded"
	StatusFailed          = "failed"
)

// PaymentIntent represents a payment to be processed
type PaymentIntent struct {
	ID          string
	Amount      int64 // minor units
	Currency    string
	Description string
	Method      string
	Status      string
	CreatedAt   time.Time
}

// PaymentResult represents the result of a payment operation
type PaymentResult struct {
	Success       bool
	TransactionID string
	Status        string
	Error         string
}

// PaymentProvider defines the interface for payment providers
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency, method, description string) (*PaymentIntent, error)
	ConfirmPayment(ctx context.Context, intentID string) (*PaymentResult, error)
	GetPaymentStatus(ctx context.Context, intentID string) (string, error)
}

// ToMinorUnits converts a money amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// MockPaymentProvider accepts every payment. Methods listed in decline are rejected on confirm.
type MockPaymentProvider struct {
	mu      sync.Mutex
	decline map[string]bool
	intents map[string]*PaymentIntent
}

func NewMockProvider(declineMethods ...string) *MockPaymentProvider {
	decline := make(map[string]bool, len(declineMethods))
	for _, m := range declineMethods {
		decline[m] = true
	}
	return &MockPaymentProvider{decline: decline, intents: make(map[string]*PaymentIntent)}
}

func (m *MockPaymentProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency, method, description string) (*PaymentIntent, error) {
	intent := &PaymentIntent{
		ID:          "mock_pi_" + uuid.NewString(),
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Method:      method,
		Status:      StatusRequiresPayment,
		CreatedAt:   time.Now(),
	}
	m.mu.Lock()
	m.intents[intent.ID] = intent
	m.mu.Unlock()
	return intent, nil
}

func (m *MockPaymentProvider) ConfirmPayment(ctx context.Context, intentID string) (*PaymentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[intentID]
	if !ok {
		return &PaymentResult{Status: StatusFailed, Error: "unknown payment intent"}, nil
	}
	if m.decline[intent.Method] {
		intent.Status = StatusFailed
		return &PaymentResult{Status: StatusFailed, Error: "payment declined"}, nil
	}
	intent.Status = StatusSucceeded
	return &PaymentResult{
		Success:       true,
		TransactionID: "mock_tx_" + uuid.NewString(),
		Status:        StatusSucceeded,
	}, nil
}

func (m *MockPaymentProvider) GetPaymentStatus(ctx context.Context, intentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if intent, ok := m.intents[intentID]; ok {
		return intent.Status, nil
	}
	return StatusFailed, nil
}
