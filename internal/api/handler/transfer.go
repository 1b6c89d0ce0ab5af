package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ayo6706/wallet-ledger/internal/service"
)

// TransferHandler serves peer-to-peer transfers.
type TransferHandler struct {
	wallets   *service.WalletService
	transfers *service.TransferService
}

func NewTransferHandler(wallets *service.WalletService, transfers *service.TransferService) *TransferHandler {
	return &TransferHandler{wallets: wallets, transfers: transfers}
}

type transferRequest struct {
	RecipientWalletNumber string          `json:"recipient_wallet_number" validate:"required,len=14,numeric"`
	Amount                decimal.Decimal `json:"amount" validate:"required"`
}

// Transfer handles POST /api/transfer.
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req transferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		RespondError(w, r, http.StatusUnprocessableEntity, "request/validation-failed", "amount must be positive")
		return
	}

	sender, err := h.wallets.GetWallet(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	transfer, err := h.transfers.Transfer(r.Context(), sender, req.RecipientWalletNumber, req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, transfer)
}
