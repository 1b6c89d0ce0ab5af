package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"sync"
)

// MockGateway simulates the external payment processor for tests and
// local development. Collections are recorded in memory so tests can
// flip them to settled and replay webhooks against them.
type MockGateway struct {
	mu          sync.Mutex
	collections map[string]*Verification

	// WebhookSecret signs and verifies mock webhook payloads.
	WebhookSecret string

	// FailInitiate forces InitiateCollection to fail, for testing the
	// rollback of deposit initiation.
	FailInitiate bool
}

// NewMockGateway creates a mock gateway with a fixed webhook secret.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		collections:   make(map[string]*Verification),
		WebhookSecret: "mock-webhook-secret",
	}
}

// InitiateCollection records the collection and returns a fake checkout
// handle.
func (g *MockGateway) InitiateCollection(ctx context.Context, req CollectionRequest) (*Collection, error) {
	if g.FailInitiate {
		return nil, fmt.Errorf("gateway temporarily unavailable")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.collections[req.Reference] = &Verification{
		Reference:   req.Reference,
		Status:      "pending",
		AmountMinor: req.AmountMinor,
	}

	return &Collection{
		AuthorizationURL: "https://checkout.mock.test/" + req.Reference,
		AccessCode:       "MOCK_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

// VerifyCollection returns the recorded state of a collection.
func (g *MockGateway) VerifyCollection(ctx context.Context, reference string) (*Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.collections[reference]
	if !ok {
		return nil, fmt.Errorf("unknown collection %s", reference)
	}
	clone := *v
	return &clone, nil
}

// Settle marks a recorded collection as successfully charged.
func (g *MockGateway) Settle(reference string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.collections[reference]; ok {
		v.Status = "success"
	}
}

// Fail marks a recorded collection as failed at the processor.
func (g *MockGateway) Fail(reference string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.collections[reference]; ok {
		v.Status = "failed"
	}
}

// VerifySignature mirrors the real gateway's HMAC-SHA512 scheme.
func (g *MockGateway) VerifySignature(payload []byte, signature string) bool {
	return hmac.Equal([]byte(g.Sign(payload)), []byte(signature))
}

// Sign produces the signature the mock would send for a payload.
func (g *MockGateway) Sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(g.WebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
