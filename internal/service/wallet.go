package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
)

// WalletService creates wallets and serves read-only wallet views. Each
// user owns exactly one wallet, created once at onboarding and never
// deleted.
type WalletService struct {
	store QueryStore
}

// NewWalletService creates a WalletService.
func NewWalletService(store QueryStore) *WalletService {
	return &WalletService{store: store}
}

// CreateWallet provisions the wallet for a newly onboarded user with a
// freshly allocated wallet number and a zero balance.
func (s *WalletService) CreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	number, err := s.allocateWalletNumber(ctx)
	if err != nil {
		return nil, err
	}

	wallet := &models.Wallet{
		ID:           uuid.New(),
		UserID:       userID,
		WalletNumber: number,
		Balance:      decimal.Zero,
		Currency:     domain.DefaultCurrency,
	}
	if err := s.store.Queries().CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}

	zap.L().Info("wallet created",
		zap.String("user_id", userID.String()),
		zap.String("wallet_number", number),
	)
	return wallet, nil
}

// GetWallet returns the wallet owned by the given user.
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.store.Queries().GetWalletByUserID(ctx, userID)
}

// ListTransactions returns the wallet's history, newest first.
func (s *WalletService) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListWalletTransactions(ctx, walletID, limit, offset)
}

// allocateWalletNumber generates wallet numbers until one not yet present
// in the store is found. The 12-digit random suffix makes collisions rare
// enough that the loop is effectively bounded.
func (s *WalletService) allocateWalletNumber(ctx context.Context) (string, error) {
	suffixLen := domain.WalletNumberLength - len(domain.WalletNumberPrefix)
	for {
		number := domain.WalletNumberPrefix + randomString("0123456789", suffixLen)
		exists, err := s.store.Queries().WalletNumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("allocate wallet number: %w", err)
		}
		if !exists {
			return number, nil
		}
	}
}
