package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method is the kind of ledger operation
type Method string

const (
	MethodDeposit    Method = "deposit"
	MethodWithdrawal Method = "withdrawal"
	MethodTransfer   Method = "transfer"
	// MethodGetBalances is a request-channel query, never stored in the ledger
	MethodGetBalances Method = "get_balances"
)

var methodSigns = map[Method]int64{
	MethodDeposit:    1,
	MethodWithdrawal: -1,
	MethodTransfer:   -1,
}

// Sign returns +1 for methods that credit an account, -1 for debits and 0 for unknown methods
func (m Method) Sign() int64 {
	return methodSigns[m]
}

// Valid reports whether m can be submitted to the ledger
func (m Method) Valid() bool {
	_, ok := methodSigns[m]
	return ok
}

// Operation represents an accepted ledger entry
type Operation struct {
	ID         string          `json:"id"`
	Seq        int64           `json:"seq"`
	Account    string          `json:"account"`
	ToAccount  string          `json:"to_account,omitempty"`
	Method     Method          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Date       time.Time       `json:"date"`
	AmountBase decimal.Decimal `json:"amount_base"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Signed returns AmountBase with the method sign applied
func (o Operation) Signed() decimal.Decimal {
	return o.AmountBase.Mul(decimal.NewFromInt(o.Method.Sign()))
}
