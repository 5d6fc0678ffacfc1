package service

import (
	"errors"

	"github.com/Dan9191/fx-ledger/internal/currency"
)

// Rejection kinds. Every error returned by Submit wraps exactly one of them.
var (
	ErrInvalidRequest    = errors.New("check your input data")
	ErrRateUnavailable   = currency.ErrRateUnavailable
	ErrLimitExceeded     = errors.New("transfer limit exceeded")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Kind names used on the wire
const (
	KindInvalidRequest    = "InvalidRequest"
	KindRateUnavailable   = "RateUnavailable"
	KindLimitExceeded     = "LimitExceeded"
	KindInsufficientFunds = "InsufficientFunds"
	KindInternal          = "Internal"
)

// KindOf maps an error returned by the ledger to its wire kind
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrRateUnavailable):
		return KindRateUnavailable
	case errors.Is(err, ErrLimitExceeded):
		return KindLimitExceeded
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	default:
		return KindInternal
	}
}
