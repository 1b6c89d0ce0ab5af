package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/service"
)

// WalletHandler serves wallet provisioning, balance, history, and the
// deposit endpoints.
type WalletHandler struct {
	wallets  *service.WalletService
	deposits *service.DepositService
}

func NewWalletHandler(wallets *service.WalletService, deposits *service.DepositService) *WalletHandler {
	return &WalletHandler{wallets: wallets, deposits: deposits}
}

// CreateWallet handles POST /api/wallet, called once at user onboarding.
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	wallet, err := h.wallets.CreateWallet(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, wallet)
}

// Balance handles GET /api/wallet/balance.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"balance":       wallet.Balance.StringFixed(2),
		"currency":      wallet.Currency,
		"wallet_number": wallet.WalletNumber,
	})
}

// Transactions handles GET /api/wallet/transactions.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	transactions, err := h.wallets.ListTransactions(r.Context(), wallet.ID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// Deposit handles POST /api/wallet/deposit: it opens a gateway collection
// and returns the checkout handle. The wallet is credited later, by the
// webhook, never here.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req depositRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		RespondError(w, r, http.StatusUnprocessableEntity, "request/validation-failed", "amount must be positive")
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	initiation, err := h.deposits.Initiate(r.Context(), wallet, middleware.EmailFromContext(r.Context()), req.Amount)
	if err != nil {
		zap.L().Error("deposit initiation failed",
			zap.String("user_id", actorID.String()),
			zap.Error(err),
		)
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Deposit initialized. Complete payment at the checkout URL.",
		"data":    initiation,
	})
}

// DepositStatus handles GET /api/wallet/deposit/{reference}/status. It is
// a read-only projection for polling and must never credit a wallet.
func (h *WalletHandler) DepositStatus(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	status, err := h.deposits.Status(r.Context(), reference)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, status)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	var n int
	for _, c := range v {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
