package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
)

const transactionColumns = `id, wallet_id, type, amount, balance_before, balance_after, reference, status, metadata, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	var metadata []byte
	err := row.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
		&t.Reference, &t.Status, &metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return &t, nil
}

func encodeMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode transaction metadata: %w", err)
	}
	return raw, nil
}

// CreateTransaction appends an immutable transaction row. References are
// globally unique; a duplicate insert surfaces ErrDuplicateTransaction.
func (q *Queries) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	raw, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO transactions (id, wallet_id, type, amount, balance_before, balance_after, reference, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = q.db.QueryRow(ctx, query,
		t.ID, t.WalletID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter, t.Reference, t.Status, raw).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: reference %s", models.ErrDuplicateTransaction, t.Reference)
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetTransactionByReference loads a transaction by reference. Transfer
// legs share a reference; the sender leg is returned in that case, and
// both legs always agree on amount and status.
func (q *Queries) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 ORDER BY type DESC LIMIT 1`
	t, err := scanTransaction(q.db.QueryRow(ctx, query, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by reference: %w", err)
	}
	return t, nil
}

// SettleTransaction flips a pending transaction to success, fixing its
// balance_after snapshot and appending settlement metadata. The WHERE
// clause on status makes the flip happen at most once even if two
// ingestions race past the advisory status read.
func (q *Queries) SettleTransaction(ctx context.Context, id uuid.UUID, balanceAfter decimal.Decimal, metadata map[string]any) error {
	raw, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE transactions
		SET status = $1, balance_after = $2, metadata = COALESCE(metadata, '{}'::jsonb) || COALESCE($3, '{}'::jsonb), updated_at = NOW()
		WHERE id = $4 AND status = $5`
	tag, err := q.db.Exec(ctx, query, domain.TxStatusSuccess, balanceAfter, raw, id, domain.TxStatusPending)
	if err != nil {
		return fmt.Errorf("settle transaction: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return models.ErrDuplicateTransaction
	}
	return nil
}

// FailTransaction marks a pending transaction as failed.
func (q *Queries) FailTransaction(ctx context.Context, id uuid.UUID, metadata map[string]any) error {
	raw, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE transactions
		SET status = $1, metadata = COALESCE(metadata, '{}'::jsonb) || COALESCE($2, '{}'::jsonb), updated_at = NOW()
		WHERE id = $3 AND status = $4`
	tag, err := q.db.Exec(ctx, query, domain.TxStatusFailed, raw, id, domain.TxStatusPending)
	if err != nil {
		return fmt.Errorf("fail transaction: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return models.ErrDuplicateTransaction
	}
	return nil
}

// ListWalletTransactions returns a wallet's history, newest first.
func (q *Queries) ListWalletTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// ListStalePendingDeposits returns pending deposit transactions created
// before the cutoff, oldest first. Used by the reconciliation worker to
// re-verify collections whose webhook never arrived.
func (q *Queries) ListStalePendingDeposits(ctx context.Context, olderThan time.Time, limit int32) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE type = $1 AND status = $2 AND created_at < $3
		ORDER BY created_at ASC
		LIMIT $4`
	rows, err := q.db.Query(ctx, query, domain.TxTypeDeposit, domain.TxStatusPending, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending deposits: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}
