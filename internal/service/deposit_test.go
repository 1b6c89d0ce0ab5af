package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/gateway"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/repository"
)

func TestDepositInitiate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	gw := gateway.NewMockGateway()
	svc := NewDepositService(store, gw, "https://app.test/callback")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")

	initiation, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("5000.00"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(initiation.Reference, domain.DepositReferencePrefix))
	assert.NotEmpty(t, initiation.AuthorizationURL)
	assert.NotEmpty(t, initiation.AccessCode)

	tx, err := store.Queries().GetTransactionByReference(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeDeposit, tx.Type)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
	// No funds have arrived yet.
	assert.True(t, tx.BalanceAfter.Equal(tx.BalanceBefore))

	// The collection was opened in kobo.
	verification, err := gw.VerifyCollection(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), verification.AmountMinor)
}

func TestDepositInitiate_GatewayFailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	gw := gateway.NewMockGateway()
	gw.FailInitiate = true
	svc := NewDepositService(store, gw, "https://app.test/callback")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")

	_, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("5000.00"))
	require.ErrorIs(t, err, models.ErrGatewayUnavailable)

	// No orphan pending rows from the failed initiation.
	var count int
	err = db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDepositInitiate_RejectsNonPositiveAmount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewDepositService(store, gateway.NewMockGateway(), "")

	wallet := createTestWallet(t, store, "0.00")

	_, err := svc.Initiate(context.Background(), wallet, "user@example.com", mustDecimal("0"))
	assert.ErrorIs(t, err, models.ErrInvalidTransfer)
}

func TestDepositInitiate_RejectsSubKoboPrecision(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewDepositService(store, gateway.NewMockGateway(), "")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")

	// 100.005 would be sent to the gateway as 10000 kobo but stored as
	// 100.01, so its webhook could never match; it must not get in.
	_, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("100.005"))
	require.ErrorIs(t, err, models.ErrInvalidTransfer)

	var count int
	err = db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDepositIngest_CreditsExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	gw := gateway.NewMockGateway()
	svc := NewDepositService(store, gw, "")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "100.00")
	initiation, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("5000.00"))
	require.NoError(t, err)

	notification := Notification{
		Event:       domain.EventChargeSuccess,
		Reference:   initiation.Reference,
		AmountMinor: 500_000,
		Raw:         map[string]any{"reference": initiation.Reference},
	}

	require.NoError(t, svc.Ingest(ctx, notification))
	assert.True(t, fetchBalance(t, db, wallet.ID).Equal(mustDecimal("5100.00")))

	tx, err := store.Queries().GetTransactionByReference(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, tx.Status)
	assert.True(t, tx.BalanceBefore.Equal(mustDecimal("100.00")))
	assert.True(t, tx.BalanceAfter.Equal(mustDecimal("5100.00")))

	// Replaying the same notification is a pure no-op.
	require.NoError(t, svc.Ingest(ctx, notification))
	assert.True(t, fetchBalance(t, db, wallet.ID).Equal(mustDecimal("5100.00")))
}

func TestDepositIngest_ConcurrentDuplicates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewDepositService(store, gateway.NewMockGateway(), "")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")
	initiation, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("2500.00"))
	require.NoError(t, err)

	notification := Notification{
		Event:       domain.EventChargeSuccess,
		Reference:   initiation.Reference,
		AmountMinor: 250_000,
	}

	const replays = 10
	var wg sync.WaitGroup
	errs := make(chan error, replays)
	for i := 0; i < replays; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Ingest(ctx, notification)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, fetchBalance(t, db, wallet.ID).Equal(mustDecimal("2500.00")))
	assert.Equal(t, 1, countTransactions(t, db, wallet.ID, domain.TxTypeDeposit, domain.TxStatusSuccess))
}

func TestDepositIngest_IgnoresOtherEvents(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewDepositService(store, gateway.NewMockGateway(), "")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")
	initiation, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("1000.00"))
	require.NoError(t, err)

	err = svc.Ingest(ctx, Notification{
		Event:       "transfer.success",
		Reference:   initiation.Reference,
		AmountMinor: 100_000,
	})
	require.NoError(t, err)

	assert.True(t, fetchBalance(t, db, wallet.ID).IsZero())
}

func TestDepositIngest_UnknownReference(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewDepositService(store, gateway.NewMockGateway(), "")

	err := svc.Ingest(context.Background(), Notification{
		Event:       domain.EventChargeSuccess,
		Reference:   "DEP_DOESNOTEXIST",
		AmountMinor: 100_000,
	})
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
}

func TestDepositIngest_AmountMismatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewDepositService(store, gateway.NewMockGateway(), "")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")
	initiation, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("5000.00"))
	require.NoError(t, err)

	err = svc.Ingest(ctx, Notification{
		Event:       domain.EventChargeSuccess,
		Reference:   initiation.Reference,
		AmountMinor: 100, // 1.00, not the recorded 5000.00
	})
	require.Error(t, err)

	// The row stays pending for reconciliation and the wallet is untouched.
	tx, err := store.Queries().GetTransactionByReference(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
	assert.True(t, fetchBalance(t, db, wallet.ID).IsZero())
}

func TestDepositMarkFailed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewDepositService(store, gateway.NewMockGateway(), "")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")
	initiation, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("700.00"))
	require.NoError(t, err)

	require.NoError(t, svc.MarkFailed(ctx, initiation.Reference, "gateway reported abandoned"))

	tx, err := store.Queries().GetTransactionByReference(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, tx.Status)
	assert.Equal(t, "gateway reported abandoned", tx.Metadata["failure_reason"])

	// Failed is terminal; a late success notification cannot settle it.
	err = svc.Ingest(ctx, Notification{
		Event:       domain.EventChargeSuccess,
		Reference:   initiation.Reference,
		AmountMinor: 70_000,
	})
	require.Error(t, err)
	assert.True(t, fetchBalance(t, db, wallet.ID).IsZero())
}

func TestDepositStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	gw := gateway.NewMockGateway()
	svc := NewDepositService(store, gw, "")
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")
	initiation, err := svc.Initiate(ctx, wallet, "user@example.com", mustDecimal("1200.00"))
	require.NoError(t, err)

	status, err := svc.Status(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, status.Status)
	assert.True(t, status.Amount.Equal(mustDecimal("1200.00")))

	require.NoError(t, svc.Ingest(ctx, Notification{
		Event:       domain.EventChargeSuccess,
		Reference:   initiation.Reference,
		AmountMinor: 120_000,
	}))

	status, err = svc.Status(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, status.Status)

	// Polling must not move money.
	assert.True(t, fetchBalance(t, db, wallet.ID).Equal(mustDecimal("1200.00")))

	_, err = svc.Status(ctx, "DEP_MISSING")
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
}

func TestReconciliation_SettlesMissedWebhook(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	gw := gateway.NewMockGateway()
	deposits := NewDepositService(store, gw, "")
	svc := NewReconciliationService(store, gw, deposits, time.Millisecond)
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")
	initiation, err := deposits.Initiate(ctx, wallet, "user@example.com", mustDecimal("3000.00"))
	require.NoError(t, err)

	// The charge succeeded at the gateway but the webhook never arrived.
	gw.Settle(initiation.Reference)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, svc.Run(ctx, 10))

	assert.True(t, fetchBalance(t, db, wallet.ID).Equal(mustDecimal("3000.00")))

	// A second pass finds nothing left to settle.
	require.NoError(t, svc.Run(ctx, 10))
	assert.True(t, fetchBalance(t, db, wallet.ID).Equal(mustDecimal("3000.00")))
}

func TestReconciliation_ClosesFailedCharge(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	gw := gateway.NewMockGateway()
	deposits := NewDepositService(store, gw, "")
	svc := NewReconciliationService(store, gw, deposits, time.Millisecond)
	ctx := context.Background()

	wallet := createTestWallet(t, store, "0.00")
	initiation, err := deposits.Initiate(ctx, wallet, "user@example.com", mustDecimal("3000.00"))
	require.NoError(t, err)

	gw.Fail(initiation.Reference)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, svc.Run(ctx, 10))

	tx, err := store.Queries().GetTransactionByReference(ctx, initiation.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, tx.Status)
	assert.True(t, fetchBalance(t, db, wallet.ID).IsZero())
}
