package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ayo6706/wallet-ledger/internal/models"
)

const transferColumns = `id, sender_wallet_id, receiver_wallet_id, amount, reference, status, sender_transaction_id, receiver_transaction_id, created_at`

func scanTransfer(row pgx.Row) (*models.Transfer, error) {
	var t models.Transfer
	err := row.Scan(&t.ID, &t.SenderWalletID, &t.ReceiverWalletID, &t.Amount, &t.Reference,
		&t.Status, &t.SenderTransactionID, &t.ReceiverTransactionID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransfer inserts the transfer row linking both legs. Must run in
// the same transaction that created the two transactions it references.
func (q *Queries) CreateTransfer(ctx context.Context, t *models.Transfer) error {
	query := `
		INSERT INTO transfers (id, sender_wallet_id, receiver_wallet_id, amount, reference, status, sender_transaction_id, receiver_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`
	err := q.db.QueryRow(ctx, query,
		t.ID, t.SenderWalletID, t.ReceiverWalletID, t.Amount, t.Reference, t.Status,
		t.SenderTransactionID, t.ReceiverTransactionID).
		Scan(&t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: reference %s", models.ErrDuplicateTransaction, t.Reference)
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

// GetTransferByReference loads a transfer by its shared reference.
func (q *Queries) GetTransferByReference(ctx context.Context, reference string) (*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE reference = $1`
	t, err := scanTransfer(q.db.QueryRow(ctx, query, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer by reference: %w", err)
	}
	return t, nil
}
