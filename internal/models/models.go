package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds the balance for exactly one user. The balance is mutated
// only inside a locked, atomic update and never goes negative.
type Wallet struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	WalletNumber string          `json:"wallet_number"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Transaction is an immutable audit record of one balance-affecting event
// on one wallet, capturing the balance snapshot before and after. Once a
// transaction reaches status "success" its snapshots are fixed; only
// metadata may still be appended.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Type          string          `json:"type"` // deposit | transfer_in | transfer_out
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reference     string          `json:"reference"`
	Status        string          `json:"status"` // pending | success | failed
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsSuccessful reports whether the transaction has settled. This is the
// idempotency gate for deposit ingestion.
func (t *Transaction) IsSuccessful() bool {
	return t.Status == "success"
}

// IsPending reports whether the transaction is awaiting settlement.
func (t *Transaction) IsPending() bool {
	return t.Status == "pending"
}

// Transfer links the two transactions of one peer-to-peer movement. It is
// created in the same atomic commit as both legs and immutable afterward.
type Transfer struct {
	ID                    uuid.UUID       `json:"id"`
	SenderWalletID        uuid.UUID       `json:"sender_wallet_id"`
	ReceiverWalletID      uuid.UUID       `json:"receiver_wallet_id"`
	Amount                decimal.Decimal `json:"amount"`
	Reference             string          `json:"reference"`
	Status                string          `json:"status"`
	SenderTransactionID   uuid.UUID       `json:"sender_transaction_id"`
	ReceiverTransactionID uuid.UUID       `json:"receiver_transaction_id"`
	CreatedAt             time.Time       `json:"created_at"`
}

// TransactionStatus is the read-only projection served to polling clients.
// It must never be derived from anything that mutates balance state.
type TransactionStatus struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}
