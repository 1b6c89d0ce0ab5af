package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ayo6706/wallet-ledger/internal/models"
)

const walletColumns = `id, user_id, wallet_number, balance, currency, created_at, updated_at`

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.WalletNumber, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWallet inserts a new wallet row. A user owns at most one wallet
// and wallet numbers are globally unique; both are enforced by the store.
func (q *Queries) CreateWallet(ctx context.Context, w *models.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, wallet_number, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query, w.ID, w.UserID, w.WalletNumber, w.Balance, w.Currency).
		Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("wallet already exists: %w", err)
		}
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

// GetWalletByUserID returns the wallet owned by the given user.
func (q *Queries) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	w, err := scanWallet(q.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet by user: %w", err)
	}
	return w, nil
}

// GetWalletByNumber resolves a wallet by its externally addressable number.
func (q *Queries) GetWalletByNumber(ctx context.Context, walletNumber string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE wallet_number = $1`
	w, err := scanWallet(q.db.QueryRow(ctx, query, walletNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet by number: %w", err)
	}
	return w, nil
}

// WalletNumberExists reports whether a wallet number is already assigned.
func (q *Queries) WalletNumberExists(ctx context.Context, walletNumber string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE wallet_number = $1)`, walletNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check wallet number: %w", err)
	}
	return exists, nil
}

// GetWalletForUpdate loads a wallet row under an exclusive row lock. Must
// be called inside a transaction.
func (q *Queries) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	w, err := scanWallet(q.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return w, nil
}

// LockWallets acquires row locks on all given wallets in ascending ID
// order, regardless of argument order. The fixed global ordering is the
// deadlock-avoidance invariant for two-wallet transfers. Must be called
// inside a transaction.
func (q *Queries) LockWallets(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	wallets := make(map[uuid.UUID]*models.Wallet, len(sorted))
	for _, id := range sorted {
		w, err := q.GetWalletForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		wallets[id] = w
	}
	return wallets, nil
}

// UpdateWalletBalance writes the authoritative balance computed under
// lock. Callers must hold the wallet's row lock in the same transaction.
func (q *Queries) UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	tag, err := q.db.Exec(ctx, `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update wallet balance: affected %d rows", tag.RowsAffected())
	}
	return nil
}
