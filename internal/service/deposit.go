package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/gateway"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/repository"
)

// DepositService converts externally confirmed payments into wallet
// credits. Ingest is the single code path in the whole system permitted
// to increase a wallet's balance from an external source.
type DepositService struct {
	store       QueryStore
	gateway     gateway.Gateway
	callbackURL string
}

// NewDepositService creates a DepositService.
func NewDepositService(store QueryStore, gw gateway.Gateway, callbackURL string) *DepositService {
	return &DepositService{store: store, gateway: gw, callbackURL: callbackURL}
}

// Initiation is the handle returned to the caller after a deposit is
// opened with the gateway.
type Initiation struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// Notification is an inbound gateway event, already authenticated at the
// webhook boundary.
type Notification struct {
	Event       string
	Reference   string
	AmountMinor int64
	Raw         map[string]any
}

// Initiate creates a pending deposit transaction and opens a gateway
// collection tagged with its reference, inside one atomic unit. If the
// gateway call fails the transaction creation rolls back, so failed
// initiations leave no orphan pending rows.
func (s *DepositService) Initiate(ctx context.Context, wallet *models.Wallet, payerEmail string, amount decimal.Decimal) (*Initiation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidTransfer)
	}
	if !domain.HasValidScale(amount) {
		return nil, fmt.Errorf("%w: amount has more than two decimal places", models.ErrInvalidTransfer)
	}

	reference := newReference(domain.DepositReferencePrefix)
	amountMinor := domain.NewMoney(amount, wallet.Currency).ToMinorUnits()

	var initiation *Initiation
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		tx := &models.Transaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			Type:          domain.TxTypeDeposit,
			Amount:        amount,
			BalanceBefore: wallet.Balance,
			// Unchanged until the gateway confirms the charge.
			BalanceAfter: wallet.Balance,
			Reference:    reference,
			Status:       domain.TxStatusPending,
			Metadata: map[string]any{
				"amount_kobo":  amountMinor,
				"initiated_at": time.Now().UTC().Format(time.RFC3339),
			},
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}

		collection, err := s.gateway.InitiateCollection(ctx, gateway.CollectionRequest{
			Email:       payerEmail,
			AmountMinor: amountMinor,
			Reference:   reference,
			CallbackURL: s.callbackURL,
			Metadata: map[string]any{
				"wallet_id":      wallet.ID.String(),
				"transaction_id": tx.ID.String(),
			},
		})
		if err != nil {
			if errors.Is(err, models.ErrGatewayUnavailable) {
				return err
			}
			return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
		}

		initiation = &Initiation{
			Reference:        reference,
			AuthorizationURL: collection.AuthorizationURL,
			AccessCode:       collection.AccessCode,
		}
		return nil
	})
	if err != nil {
		zap.L().Error("deposit initiation failed",
			zap.String("wallet_number", wallet.WalletNumber),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Info("deposit initiated",
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
		zap.Int64("amount_kobo", amountMinor),
	)
	return initiation, nil
}

// Ingest applies one gateway notification to the ledger. It is safe to
// invoke arbitrarily many times for the same underlying event: for N
// duplicate notifications of a settled reference the wallet is credited
// exactly once and the rest are no-ops.
func (s *DepositService) Ingest(ctx context.Context, n Notification) error {
	if n.Event != domain.EventChargeSuccess {
		// Acknowledged but never credits a wallet.
		observability.IncrementWebhookEvent("ignored")
		return nil
	}

	tx, err := s.store.Queries().GetTransactionByReference(ctx, n.Reference)
	if err != nil {
		if errors.Is(err, models.ErrTransactionNotFound) {
			zap.L().Error("notification for unknown reference", zap.String("reference", n.Reference))
		}
		return err
	}
	if tx.Type != domain.TxTypeDeposit {
		return fmt.Errorf("%w: reference %s is not a deposit", models.ErrTransactionNotFound, n.Reference)
	}

	// Idempotency gate: checked before any lock is taken. This is the
	// authoritative duplicate-suppression point.
	if tx.IsSuccessful() {
		observability.IncrementWebhookEvent("duplicate")
		zap.L().Info("duplicate notification suppressed", zap.String("reference", n.Reference))
		return nil
	}
	if !canTransition(tx.Status, domain.TxStatusSuccess) {
		observability.IncrementWebhookEvent("rejected")
		return fmt.Errorf("cannot settle transaction %s in status %s", n.Reference, tx.Status)
	}

	amount := domain.FromMinorUnits(n.AmountMinor)
	if !amount.Equal(tx.Amount) {
		// Settling a different amount would break the recorded
		// before/after invariant; leave the row pending for operators.
		observability.IncrementWebhookEvent("amount_mismatch")
		zap.L().Error("notification amount mismatch",
			zap.String("reference", n.Reference),
			zap.String("recorded", tx.Amount.StringFixed(2)),
			zap.String("notified", amount.StringFixed(2)),
		)
		return fmt.Errorf("notification amount %s does not match transaction %s", amount.StringFixed(2), n.Reference)
	}

	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		wallet, err := q.GetWalletForUpdate(ctx, tx.WalletID)
		if err != nil {
			return err
		}

		newBalance := wallet.Balance.Add(amount)
		err = q.SettleTransaction(ctx, tx.ID, newBalance, map[string]any{
			"gateway_payload": n.Raw,
			"completed_at":    time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return q.UpdateWalletBalance(ctx, wallet.ID, newBalance)
	})
	if err != nil {
		// A concurrent ingestion won the settle race; this one is a no-op.
		if errors.Is(err, models.ErrDuplicateTransaction) {
			observability.IncrementWebhookEvent("duplicate")
			return nil
		}
		return err
	}

	observability.IncrementWebhookEvent("credited")
	zap.L().Info("wallet credited from deposit",
		zap.String("reference", n.Reference),
		zap.String("amount", amount.StringFixed(2)),
	)
	return nil
}

// MarkFailed closes a pending deposit the gateway reports as failed or
// abandoned. The wallet balance is untouched; only the transaction row
// moves to its terminal state.
func (s *DepositService) MarkFailed(ctx context.Context, reference, reason string) error {
	tx, err := s.store.Queries().GetTransactionByReference(ctx, reference)
	if err != nil {
		return err
	}
	if tx.Type != domain.TxTypeDeposit {
		return fmt.Errorf("%w: reference %s is not a deposit", models.ErrTransactionNotFound, reference)
	}
	if !canTransition(tx.Status, domain.TxStatusFailed) {
		return nil
	}

	err = s.store.Queries().FailTransaction(ctx, tx.ID, map[string]any{
		"failure_reason": reason,
		"failed_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Lost the race to a concurrent settle; the deposit succeeded.
		if errors.Is(err, models.ErrDuplicateTransaction) {
			return nil
		}
		return err
	}

	zap.L().Info("deposit marked failed",
		zap.String("reference", reference),
		zap.String("reason", reason),
	)
	return nil
}

// Status is a read-only projection for client polling. It never mutates
// balances or transaction state.
func (s *DepositService) Status(ctx context.Context, reference string) (*models.TransactionStatus, error) {
	tx, err := s.store.Queries().GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return &models.TransactionStatus{
		Reference: tx.Reference,
		Status:    tx.Status,
		Amount:    tx.Amount,
		Type:      tx.Type,
		CreatedAt: tx.CreatedAt,
	}, nil
}
