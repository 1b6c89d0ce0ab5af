package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/gateway"
)

// ReconciliationService settles deposits whose webhook never arrived. It
// asks the gateway for the authoritative state of stale pending deposit
// transactions and pushes confirmed ones through the same idempotent
// ingestion path a webhook would take.
type ReconciliationService struct {
	store    QueryStore
	gateway  gateway.Gateway
	deposits *DepositService
	minAge   time.Duration
}

// NewReconciliationService creates a reconciliation service. minAge is
// how old a pending deposit must be before it is re-verified, giving the
// webhook a head start.
func NewReconciliationService(store QueryStore, gw gateway.Gateway, deposits *DepositService, minAge time.Duration) *ReconciliationService {
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	return &ReconciliationService{store: store, gateway: gw, deposits: deposits, minAge: minAge}
}

// Run verifies one batch of stale pending deposits.
func (s *ReconciliationService) Run(ctx context.Context, batchSize int32) error {
	cutoff := time.Now().Add(-s.minAge)
	pending, err := s.store.Queries().ListStalePendingDeposits(ctx, cutoff, batchSize)
	if err != nil {
		return fmt.Errorf("list stale pending deposits: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	zap.L().Info("reconciling stale pending deposits", zap.Int("count", len(pending)))

	for _, tx := range pending {
		verification, err := s.gateway.VerifyCollection(ctx, tx.Reference)
		if err != nil {
			zap.L().Warn("deposit verification failed",
				zap.String("reference", tx.Reference),
				zap.Error(err),
			)
			continue
		}
		switch verification.Status {
		case "failed", "abandoned":
			if err := s.deposits.MarkFailed(ctx, tx.Reference, "gateway reported "+verification.Status); err != nil {
				zap.L().Error("reconciliation fail-close failed",
					zap.String("reference", tx.Reference),
					zap.Error(err),
				)
			}
			continue
		case "success":
		default:
			continue
		}

		err = s.deposits.Ingest(ctx, Notification{
			Event:       domain.EventChargeSuccess,
			Reference:   verification.Reference,
			AmountMinor: verification.AmountMinor,
			Raw: map[string]any{
				"source":    "reconciliation",
				"reference": verification.Reference,
				"amount":    verification.AmountMinor,
				"status":    verification.Status,
			},
		})
		if err != nil {
			zap.L().Error("reconciliation settle failed",
				zap.String("reference", tx.Reference),
				zap.Error(err),
			)
		}
	}
	return nil
}
