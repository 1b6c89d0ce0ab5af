package service

import (
	"github.com/ayo6706/wallet-ledger/internal/domain"
)

// Transactions move pending -> success or pending -> failed; both end
// states are terminal. Settled ledger rows are never rewritten.
var transactionTransitions = map[string]map[string]struct{}{
	domain.TxStatusPending: {
		domain.TxStatusSuccess: {},
		domain.TxStatusFailed:  {},
	},
	domain.TxStatusSuccess: {},
	domain.TxStatusFailed:  {},
}

func canTransition(current, next string) bool {
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}
