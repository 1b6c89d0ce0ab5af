package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/repository"
)

func TestCreateWallet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)
	ctx := context.Background()

	userID := uuid.New()
	wallet, err := svc.CreateWallet(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, userID, wallet.UserID)
	assert.True(t, wallet.Balance.IsZero())
	assert.Equal(t, "NGN", wallet.Currency)
	assert.Len(t, wallet.WalletNumber, domain.WalletNumberLength)
	assert.True(t, strings.HasPrefix(wallet.WalletNumber, domain.WalletNumberPrefix))

	// The wallet number resolves back to the same wallet.
	found, err := store.Queries().GetWalletByNumber(ctx, wallet.WalletNumber)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, found.ID)
}

func TestCreateWallet_OnePerUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)
	ctx := context.Background()

	userID := uuid.New()
	_, err := svc.CreateWallet(ctx, userID)
	require.NoError(t, err)

	_, err = svc.CreateWallet(ctx, userID)
	assert.Error(t, err)
}

func TestGetWallet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)

	_, err := svc.GetWallet(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrWalletNotFound)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)
	ctx := context.Background()

	sender := createTestWallet(t, store, "1000.00")
	recipient := createTestWallet(t, store, "0.00")

	transferSvc := NewTransferService(store)
	for _, amount := range []string{"100.00", "200.00", "300.00"} {
		_, err := transferSvc.Transfer(ctx, sender, recipient.WalletNumber, mustDecimal(amount))
		require.NoError(t, err)
		// Refresh the sender snapshot the way a handler would.
		var err2 error
		sender, err2 = svc.GetWallet(ctx, sender.UserID)
		require.NoError(t, err2)
	}

	history, err := svc.ListTransactions(ctx, sender.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "300", history[0].Amount.String())
	assert.Equal(t, "100", history[2].Amount.String())
	for _, tx := range history {
		assert.Equal(t, domain.TxTypeTransferOut, tx.Type)
		assert.Equal(t, sender.ID, tx.WalletID)
	}
}

func TestListTransactions_LimitClamped(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)

	wallet := createTestWallet(t, store, "0.00")
	history, err := svc.ListTransactions(context.Background(), wallet.ID, -5, -1)
	require.NoError(t, err)
	assert.Empty(t, history)
}
