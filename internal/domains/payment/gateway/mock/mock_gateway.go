package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"themepark-backend/internal/domains/payment/gateway"
)

// =====================================================
// MOCK GATEWAY
// =====================================================

// DeclineTokenPrefix makes the mock decline any charge whose token starts
// with it.
const DeclineTokenPrefix = "tok_decline"

// MockGateway approves every charge unless told otherwise. Used in
// development and tests.
type MockGateway struct {
	mu                sync.Mutex
	shouldFailPayment bool
	shouldFailRefund  bool
	charges           []gateway.ChargeRequest
	refunds           []gateway.RefundRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

var _ gateway.Gateway = (*MockGateway)(nil)

func (m *MockGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailPayment || strings.HasPrefix(req.Token, DeclineTokenPrefix) {
		return nil, fmt.Errorf("mock charge of %s: %w", req.Amount.StringFixed(2), gateway.ErrDeclined)
	}

	m.charges = append(m.charges, req)
	return &gateway.ChargeResult{
		TransactionRef: "MOCK_TXN_" + strings.ToUpper(uuid.NewString()[:8]),
		ProcessedAt:    time.Now().UTC(),
	}, nil
}

func (m *MockGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailRefund {
		return nil, fmt.Errorf("mock refund failed")
	}

	m.refunds = append(m.refunds, req)
	return &gateway.RefundResult{
		RefundRef:   fmt.Sprintf("MOCK_REFUND_%d", time.Now().UnixNano()),
		ProcessedAt: time.Now().UTC(),
	}, nil
}

// SetFailPayment sets whether charges should be declined
func (m *MockGateway) SetFailPayment(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailPayment = shouldFail
}

// SetFailRefund sets whether refunds should fail
func (m *MockGateway) SetFailRefund(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailRefund = shouldFail
}

// Charges returns the approved charges.
func (m *MockGateway) Charges() []gateway.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.ChargeRequest(nil), m.charges...)
}

// Refunds returns the accepted refunds.
func (m *MockGateway) Refunds() []gateway.RefundRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.RefundRequest(nil), m.refunds...)
}
