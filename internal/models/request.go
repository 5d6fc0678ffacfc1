package models

import "github.com/shopspring/decimal"

// OperationRequest is the message accepted by the request channel.
// Amt accepts both JSON numbers and numeric strings.
type OperationRequest struct {
	Method      Method              `json:"method"`
	Amt         decimal.NullDecimal `json:"amt"`
	Date        string              `json:"date"`
	Account     string              `json:"account"`
	FromAccount string              `json:"from_account"`
	ToAccount   string              `json:"to_account"`
	Ccy         string              `json:"ccy"`
}
