package domain

const (
	// Wallet numbers are 14 digits: a fixed institution prefix followed
	// by 12 random digits.
	WalletNumberPrefix = "45"
	WalletNumberLength = 14

	DefaultCurrency = "NGN"

	TxTypeDeposit     = "deposit"
	TxTypeTransferIn  = "transfer_in"
	TxTypeTransferOut = "transfer_out"

	TxStatusPending = "pending"
	TxStatusSuccess = "success"
	TxStatusFailed  = "failed"

	TransferStatusSuccess = "success"

	// Reference prefixes correlate a transaction across systems.
	DepositReferencePrefix  = "DEP_"
	TransferReferencePrefix = "TRF_"

	// Permission scopes resolved by the auth collaborator before any
	// ledger call.
	ScopeWalletRead     = "wallet.read"
	ScopeWalletFund     = "wallet.fund"
	ScopeWalletTransfer = "wallet.transfer"

	// Gateway event that is allowed to credit a wallet.
	EventChargeSuccess = "charge.success"
)
