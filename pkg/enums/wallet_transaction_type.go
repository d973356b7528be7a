package enums

import "fmt"

// WalletTransactionType maps to the wallet_transaction_type enum in Postgres.
type WalletTransactionType string

const (
	WalletTransactionTypeOrderCredit WalletTransactionType = "order_credit"
	WalletTransactionTypeWithdrawal  WalletTransactionType = "withdrawal"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeOrderCredit,
	WalletTransactionTypeWithdrawal,
}

// IsValid reports whether the value matches the canonical wallet transaction enum.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
