package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/gateway"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/service"
)

// WebhookHandler receives payment notifications from the external
// gateway. The gateway does not guarantee single delivery; the deposit
// service's idempotency gate absorbs replays.
type WebhookHandler struct {
	gateway  gateway.Gateway
	deposits *service.DepositService
}

func NewWebhookHandler(gw gateway.Gateway, deposits *service.DepositService) *WebhookHandler {
	return &WebhookHandler{gateway: gw, deposits: deposits}
}

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"` // minor units (kobo)
	} `json:"data"`
}

// HandleGatewayWebhook handles POST /api/wallet/paystack/webhook.
//
// Processing failures after a valid signature are still acknowledged
// with 200 so the gateway stops retrying events we cannot use; the
// actual failure goes to the log and metrics, not the response body.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	signature := r.Header.Get(gateway.SignatureHeader)
	if !h.gateway.VerifySignature(body, signature) {
		observability.IncrementWebhookEvent("bad_signature")
		zap.L().Warn("webhook rejected: invalid signature",
			zap.String("remote_addr", r.RemoteAddr),
		)
		RespondError(w, r, http.StatusBadRequest, "webhook/invalid-signature", "Invalid signature")
		return
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid webhook payload")
		return
	}

	zap.L().Info("gateway webhook received",
		zap.String("event", env.Event),
		zap.String("reference", env.Data.Reference),
	)

	if env.Event != domain.EventChargeSuccess {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	err = h.deposits.Ingest(r.Context(), service.Notification{
		Event:       env.Event,
		Reference:   env.Data.Reference,
		AmountMinor: env.Data.Amount,
		Raw:         raw,
	})
	if err != nil {
		observability.IncrementWebhookEvent("failed")
		zap.L().Error("webhook ingestion failed",
			zap.String("reference", env.Data.Reference),
			zap.Error(err),
		)
		RespondJSON(w, http.StatusOK, map[string]string{"status": "error_logged"})
		return
	}

	RespondJSON(w, http.StatusOK, map[string]bool{"status": true})
}
