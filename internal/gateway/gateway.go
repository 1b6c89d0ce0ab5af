package gateway

import "context"

// CollectionRequest asks the gateway to collect a card payment. Amount is
// always expressed in the smallest currency unit (kobo); conversion from
// the ledger's major-unit decimal happens at the call site, never inside
// stored records.
type CollectionRequest struct {
	Email       string         `json:"email"`
	AmountMinor int64          `json:"amount"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Collection is the checkout handle returned by the gateway.
type Collection struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Verification is the gateway's authoritative view of a collection, used
// by the reconciliation fallback when a webhook never arrived.
type Verification struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"` // "success", "failed", "abandoned", ...
	AmountMinor int64  `json:"amount"`
}

// Gateway is the boundary with the external payment processor.
type Gateway interface {
	// InitiateCollection opens a checkout session tagged with the
	// given reference.
	InitiateCollection(ctx context.Context, req CollectionRequest) (*Collection, error)

	// VerifyCollection fetches the settled state of a collection.
	VerifyCollection(ctx context.Context, reference string) (*Verification, error)

	// VerifySignature authenticates an inbound webhook body against
	// its signature header using a constant-time comparison.
	VerifySignature(payload []byte, signature string) bool
}
