package models

import "errors"

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidTransfer      = errors.New("invalid transfer")
	ErrDuplicateTransaction = errors.New("transaction already processed")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrInvalidSignature     = errors.New("invalid signature")
)
