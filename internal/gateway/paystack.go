package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/models"
)

const defaultBaseURL = "https://api.paystack.co"

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "x-paystack-signature"

// Paystack talks to the Paystack REST API. Amounts cross this boundary in
// kobo only.
type Paystack struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

// NewPaystack creates a gateway client with sane HTTP timeouts.
func NewPaystack(secretKey, webhookSecret, baseURL string) *Paystack {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Paystack{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitiateCollection calls POST /transaction/initialize.
func (p *Paystack) InitiateCollection(ctx context.Context, req CollectionRequest) (*Collection, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode collection request: %w", err)
	}

	var resp initializeResponse
	if err := p.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		zap.L().Error("paystack initialize rejected",
			zap.String("reference", req.Reference),
			zap.String("message", resp.Message),
		)
		return nil, fmt.Errorf("%w: %s", models.ErrGatewayUnavailable, resp.Message)
	}

	return &Collection{
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
		Reference:        req.Reference,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// VerifyCollection calls GET /transaction/verify/{reference}.
func (p *Paystack) VerifyCollection(ctx context.Context, reference string) (*Verification, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	var resp verifyResponse
	if err := p.do(httpReq, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", models.ErrGatewayUnavailable, resp.Message)
	}

	return &Verification{
		Reference:   resp.Data.Reference,
		Status:      resp.Data.Status,
		AmountMinor: resp.Data.Amount,
	}, nil
}

// VerifySignature computes HMAC-SHA512 over the raw body with the shared
// webhook secret and compares it to the header value in constant time.
func (p *Paystack) VerifySignature(payload []byte, signature string) bool {
	if p.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (p *Paystack) post(ctx context.Context, path string, body []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	return p.do(httpReq, out)
}

func (p *Paystack) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned %d", models.ErrGatewayUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
