package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/repository"
)

// TransferService moves funds between two wallets atomically, producing
// two linked transaction records and one transfer record per movement.
type TransferService struct {
	store QueryStore
}

// NewTransferService creates a TransferService.
func NewTransferService(store QueryStore) *TransferService {
	return &TransferService{store: store}
}

// Transfer debits the sender and credits the wallet addressed by
// recipientWalletNumber in one atomic unit.
//
// Both wallet rows are locked in ascending-ID order regardless of which
// party is sender, so two concurrent transfers between the same pair, in
// either direction, always acquire locks in the same global order. The
// balance check before the locks is advisory only; the authoritative
// check happens again once the locks are held.
func (s *TransferService) Transfer(ctx context.Context, sender *models.Wallet, recipientWalletNumber string, amount decimal.Decimal) (*models.Transfer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidTransfer)
	}
	if !domain.HasValidScale(amount) {
		return nil, fmt.Errorf("%w: amount has more than two decimal places", models.ErrInvalidTransfer)
	}

	recipient, err := s.store.Queries().GetWalletByNumber(ctx, recipientWalletNumber)
	if err != nil {
		return nil, err
	}

	if recipient.ID == sender.ID {
		return nil, fmt.Errorf("%w: cannot transfer to your own wallet", models.ErrInvalidTransfer)
	}
	if recipient.Currency != sender.Currency {
		return nil, fmt.Errorf("%w: currency mismatch", models.ErrInvalidTransfer)
	}

	// Cheap early rejection before taking any lock.
	if sender.Balance.LessThan(amount) {
		observability.IncrementTransfer("failed")
		zap.L().Warn("transfer rejected on pre-check",
			zap.String("sender_wallet", sender.WalletNumber),
			zap.String("balance", sender.Balance.StringFixed(2)),
			zap.String("requested", amount.StringFixed(2)),
		)
		return nil, models.ErrInsufficientBalance
	}

	reference := newReference(domain.TransferReferencePrefix)
	var transfer *models.Transfer

	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		locked, err := q.LockWallets(ctx, sender.ID, recipient.ID)
		if err != nil {
			return err
		}
		lockedSender := locked[sender.ID]
		lockedRecipient := locked[recipient.ID]

		// The pre-check read may be stale by now.
		if lockedSender.Balance.LessThan(amount) {
			return models.ErrInsufficientBalance
		}

		senderAfter := lockedSender.Balance.Sub(amount)
		senderTx := &models.Transaction{
			ID:            uuid.New(),
			WalletID:      lockedSender.ID,
			Type:          domain.TxTypeTransferOut,
			Amount:        amount,
			BalanceBefore: lockedSender.Balance,
			BalanceAfter:  senderAfter,
			Reference:     reference,
			Status:        domain.TxStatusSuccess,
			Metadata: map[string]any{
				"recipient_wallet": lockedRecipient.WalletNumber,
			},
		}
		if err := q.CreateTransaction(ctx, senderTx); err != nil {
			return err
		}
		if err := q.UpdateWalletBalance(ctx, lockedSender.ID, senderAfter); err != nil {
			return err
		}

		recipientAfter := lockedRecipient.Balance.Add(amount)
		recipientTx := &models.Transaction{
			ID:            uuid.New(),
			WalletID:      lockedRecipient.ID,
			Type:          domain.TxTypeTransferIn,
			Amount:        amount,
			BalanceBefore: lockedRecipient.Balance,
			BalanceAfter:  recipientAfter,
			Reference:     reference,
			Status:        domain.TxStatusSuccess,
			Metadata: map[string]any{
				"sender_wallet": lockedSender.WalletNumber,
			},
		}
		if err := q.CreateTransaction(ctx, recipientTx); err != nil {
			return err
		}
		if err := q.UpdateWalletBalance(ctx, lockedRecipient.ID, recipientAfter); err != nil {
			return err
		}

		transfer = &models.Transfer{
			ID:                    uuid.New(),
			SenderWalletID:        lockedSender.ID,
			ReceiverWalletID:      lockedRecipient.ID,
			Amount:                amount,
			Reference:             reference,
			Status:                domain.TransferStatusSuccess,
			SenderTransactionID:   senderTx.ID,
			ReceiverTransactionID: recipientTx.ID,
		}
		return q.CreateTransfer(ctx, transfer)
	})
	if err != nil {
		observability.IncrementTransfer("failed")
		return nil, err
	}

	observability.IncrementTransfer("success")
	zap.L().Info("transfer completed",
		zap.String("reference", reference),
		zap.String("sender_wallet", sender.WalletNumber),
		zap.String("recipient_wallet", recipient.WalletNumber),
		zap.String("amount", amount.StringFixed(2)),
	)
	return transfer, nil
}
