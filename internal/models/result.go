package models

import "github.com/shopspring/decimal"

// Result is the caller-visible outcome of a submission
type Result struct {
	Success   bool       `json:"success"`
	Kind      string     `json:"kind,omitempty"`
	Message   string     `json:"message"`
	Operation *Operation `json:"operation,omitempty"`
}

// Balance represents an account balance in the base currency
type Balance struct {
	Account  string          `json:"account"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// LimitStatus represents transfer limit usage for the window ending at WindowEnd
type LimitStatus struct {
	Account     string          `json:"account"`
	WindowStart string          `json:"window_start"` // Format: YYYY-MM-DD
	WindowEnd   string          `json:"window_end"`   // Format: YYYY-MM-DD
	Used        decimal.Decimal `json:"used"`
	Limit       decimal.Decimal `json:"limit"`
	Remaining   decimal.Decimal `json:"remaining"`
	Currency    string          `json:"currency"`
}
