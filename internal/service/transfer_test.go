package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/repository"
)

func TestTransfer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewTransferService(store)
	ctx := context.Background()

	sender := createTestWallet(t, store, "1000.00")
	recipient := createTestWallet(t, store, "0.00")

	transfer, err := svc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal("400.00"))
	require.NoError(t, err)

	assert.True(t, fetchBalance(t, db, sender.ID).Equal(mustDecimal("600.00")))
	assert.True(t, fetchBalance(t, db, recipient.ID).Equal(mustDecimal("400.00")))

	// Both legs share one reference and settle in the same commit.
	senderTx, err := store.Queries().GetTransactionByReference(ctx, transfer.Reference)
	require.NoError(t, err)
	assert.Equal(t, transfer.Reference, senderTx.Reference)

	assert.Equal(t, 1, countTransactions(t, db, sender.ID, domain.TxTypeTransferOut, domain.TxStatusSuccess))
	assert.Equal(t, 1, countTransactions(t, db, recipient.ID, domain.TxTypeTransferIn, domain.TxStatusSuccess))

	stored, err := store.Queries().GetTransferByReference(ctx, transfer.Reference)
	require.NoError(t, err)
	assert.Equal(t, sender.ID, stored.SenderWalletID)
	assert.Equal(t, recipient.ID, stored.ReceiverWalletID)
	assert.NotEqual(t, stored.SenderTransactionID, stored.ReceiverTransactionID)
}

func TestTransfer_BalanceSnapshots(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewTransferService(store)
	ctx := context.Background()

	sender := createTestWallet(t, store, "500.00")
	recipient := createTestWallet(t, store, "100.00")

	transfer, err := svc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal("150.00"))
	require.NoError(t, err)

	rows, err := db.Query(ctx,
		"SELECT type, balance_before, balance_after FROM transactions WHERE reference = $1", transfer.Reference)
	require.NoError(t, err)
	defer rows.Close()

	snapshots := map[string][2]string{}
	for rows.Next() {
		var txType, before, after string
		require.NoError(t, rows.Scan(&txType, &before, &after))
		snapshots[txType] = [2]string{before, after}
	}
	require.Len(t, snapshots, 2)

	assert.True(t, mustDecimal(snapshots[domain.TxTypeTransferOut][0]).Equal(mustDecimal("500.00")))
	assert.True(t, mustDecimal(snapshots[domain.TxTypeTransferOut][1]).Equal(mustDecimal("350.00")))
	assert.True(t, mustDecimal(snapshots[domain.TxTypeTransferIn][0]).Equal(mustDecimal("100.00")))
	assert.True(t, mustDecimal(snapshots[domain.TxTypeTransferIn][1]).Equal(mustDecimal("250.00")))
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewTransferService(store)
	ctx := context.Background()

	sender := createTestWallet(t, store, "50.00")
	recipient := createTestWallet(t, store, "0.00")

	_, err := svc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal("100.00"))
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	// A failed transfer writes nothing.
	assert.True(t, fetchBalance(t, db, sender.ID).Equal(mustDecimal("50.00")))
	assert.True(t, fetchBalance(t, db, recipient.ID).IsZero())

	var txCount int
	err = db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&txCount)
	require.NoError(t, err)
	assert.Zero(t, txCount)
}

func TestTransfer_Validation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewTransferService(store)
	ctx := context.Background()

	sender := createTestWallet(t, store, "100.00")
	recipient := createTestWallet(t, store, "0.00")

	_, err := svc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal("0"))
	assert.ErrorIs(t, err, models.ErrInvalidTransfer)

	_, err = svc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal("-10.00"))
	assert.ErrorIs(t, err, models.ErrInvalidTransfer)

	_, err = svc.Transfer(ctx, sender, sender.WalletNumber, mustDecimal("10.00"))
	assert.ErrorIs(t, err, models.ErrInvalidTransfer)

	_, err = svc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal("10.005"))
	assert.ErrorIs(t, err, models.ErrInvalidTransfer)

	_, err = svc.Transfer(ctx, sender, "45999999999999", mustDecimal("10.00"))
	assert.ErrorIs(t, err, models.ErrWalletNotFound)
}

// Opposing transfers between the same pair must not deadlock: both
// directions acquire row locks in the same ascending-ID order.
func TestTransfer_Deadlock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewTransferService(store)
	ctx := context.Background()

	a := createTestWallet(t, store, "1000.00")
	b := createTestWallet(t, store, "1000.00")

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)

	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, a, b.WalletNumber, mustDecimal("10.00"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, b, a.WalletNumber, mustDecimal("10.00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Equal opposing volume: both balances end where they started, and
	// the total amount in the system is conserved.
	finalA := fetchBalance(t, db, a.ID)
	finalB := fetchBalance(t, db, b.ID)
	assert.True(t, finalA.Equal(mustDecimal("1000.00")), "wallet A: %s", finalA)
	assert.True(t, finalB.Equal(mustDecimal("1000.00")), "wallet B: %s", finalB)
}

func TestTransfer_ConcurrentOverdraw(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewTransferService(store)
	ctx := context.Background()

	sender := createTestWallet(t, store, "100.00")
	recipient := createTestWallet(t, store, "0.00")

	// Ten concurrent 60.00 transfers against a 100.00 balance: exactly
	// one can clear the authoritative under-lock check.
	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal("60.00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, models.ErrInsufficientBalance)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)

	assert.True(t, fetchBalance(t, db, sender.ID).Equal(mustDecimal("40.00")))
	assert.True(t, fetchBalance(t, db, recipient.ID).Equal(mustDecimal("60.00")))
}
