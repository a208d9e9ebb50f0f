package core

import "errors"

// Sentinel errors shared across the ledger, storage and HTTP layers. The
// HTTP layer maps each of these onto a status code and a stable message code.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrOwnershipMismatch      = errors.New("entity does not belong to user")
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDateRange   = errors.New("end date must not precede start date")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNegativeBalance    = errors.New("balance cannot be negative")
	ErrMissingUser        = errors.New("user not provided")
	ErrMissingWallet      = errors.New("wallet not provided")
	ErrSameWallet         = errors.New("source and target wallet must differ")
	ErrInvalidTimeframe   = errors.New("invalid timeframe")
	ErrWalletConflict     = errors.New("wallet fields do not match transaction type")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IsNotFound reports whether err is one of the entity not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrBudgetNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsValidation reports whether err is a caller-input validation failure.
func IsValidation(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidAmount, ErrInvalidDate, ErrInvalidDateRange,
		ErrEmptyName, ErrNameTooLong, ErrDescriptionTooLong,
		ErrNegativeBalance, ErrMissingUser, ErrMissingWallet,
		ErrSameWallet, ErrWalletConflict, ErrInvalidTransactionType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
