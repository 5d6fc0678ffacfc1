package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/fx-ledger/internal/config"
	"github.com/Dan9191/fx-ledger/internal/metrics"
	"github.com/Dan9191/fx-ledger/internal/models"
	"github.com/Dan9191/fx-ledger/internal/repository"
	"github.com/Dan9191/fx-ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Converter normalizes an amount into the base currency
type Converter interface {
	Convert(ctx context.Context, date time.Time, code string, amount decimal.Decimal) (decimal.Decimal, error)
	Base() string
}

// Methods that count towards the balance check
var balanceMethods = map[models.Method]bool{
	models.MethodTransfer:   true,
	models.MethodDeposit:    true,
	models.MethodWithdrawal: true,
}

// Service is the ledger engine: it validates operations and answers balance queries
type Service struct {
	repo       *repository.Repository
	converter  Converter
	log        *logrus.Logger
	limit      decimal.Decimal
	windowDays int

	// mu makes the limit check, balance check and append one atomic step
	mu sync.Mutex
}

// NewService initializes a new service
func NewService(repo *repository.Repository, converter Converter, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:       repo,
		converter:  converter,
		log:        log,
		limit:      cfg.TransferLimit,
		windowDays: cfg.TransferWindowDays,
	}
}

// BaseCurrency returns the currency balances are reported in
func (s *Service) BaseCurrency() string {
	return s.converter.Base()
}

// Submit validates the request and appends it to the ledger when admissible.
// The returned error wraps one of ErrInvalidRequest, ErrRateUnavailable,
// ErrLimitExceeded or ErrInsufficientFunds; nothing is stored on error.
func (s *Service) Submit(ctx context.Context, req models.OperationRequest) (*models.Operation, error) {
	op, err := s.parseRequest(req)
	if err != nil {
		return nil, s.reject(req.Method, err)
	}

	// Conversion may block on the rate source, so it stays outside the lock
	amountBase, err := s.converter.Convert(ctx, op.Date, op.Currency, op.Amount)
	if err != nil {
		if !errors.Is(err, ErrRateUnavailable) {
			err = fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}
		return nil, s.reject(op.Method, err)
	}
	op.AmountBase = amountBase

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.repo.FindByAccount(op.Account)
	if err := s.checkTransferLimit(op, history); err != nil {
		return nil, s.reject(op.Method, err)
	}
	if err := s.checkBalance(op, history); err != nil {
		return nil, s.reject(op.Method, err)
	}
	if err := s.repo.Append(op); err != nil {
		return nil, s.reject(op.Method, fmt.Errorf("failed to store operation: %w", err))
	}

	metrics.OperationsTotal.WithLabelValues(string(op.Method), "accepted").Inc()
	s.log.Infof("Operation accepted: %s %s %s (%s %s) on %s for account %s",
		op.Method, op.Amount, op.Currency, op.AmountBase, s.BaseCurrency(), utils.FormatDate(op.Date), op.Account)
	return op, nil
}

// parseRequest checks the input constraints and builds the transient operation
func (s *Service) parseRequest(req models.OperationRequest) (*models.Operation, error) {
	if !req.Amt.Valid || !req.Amt.Decimal.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	}
	if req.Date == "" {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	op := &models.Operation{
		Method:   req.Method,
		Account:  req.Account,
		Amount:   req.Amt.Decimal,
		Currency: strings.ToUpper(strings.TrimSpace(req.Ccy)),
		Date:     date,
	}
	if op.Currency == "" {
		op.Currency = s.BaseCurrency()
	}

	if req.Method == models.MethodTransfer {
		if req.FromAccount == "" || req.ToAccount == "" {
			return nil, fmt.Errorf("%w: transfer needs from_account and to_account", ErrInvalidRequest)
		}
		if req.FromAccount == req.ToAccount {
			return nil, fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidRequest)
		}
		op.Account = req.FromAccount
		op.ToAccount = req.ToAccount
	} else if req.Account == "" {
		return nil, fmt.Errorf("%w: account is required", ErrInvalidRequest)
	}

	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidRequest, req.Method)
	}
	return op, nil
}

// checkTransferLimit caps transfers of one account over the rolling window ending at op.Date
func (s *Service) checkTransferLimit(op *models.Operation, history []models.Operation) error {
	if op.Method != models.MethodTransfer {
		return nil
	}
	start, end := utils.Window(op.Date, s.windowDays)
	used := transferredWithin(history, start, end)
	if used.Add(op.AmountBase).GreaterThan(s.limit) {
		return fmt.Errorf("%w: %s already transferred between %s and %s, limit is %s %s",
			ErrLimitExceeded, used.StringFixed(2), utils.FormatDate(start), utils.FormatDate(end),
			s.limit.StringFixed(2), s.BaseCurrency())
	}
	return nil
}

// checkBalance keeps the account non-negative. Deposits always pass.
func (s *Service) checkBalance(op *models.Operation, history []models.Operation) error {
	remain := decimal.Zero
	for _, h := range history {
		if balanceMethods[h.Method] {
			remain = remain.Add(h.Signed())
		}
	}
	if remain.Add(op.Signed()).IsNegative() {
		return fmt.Errorf("%w: balance %s %s does not cover %s %s",
			ErrInsufficientFunds, remain.StringFixed(2), s.BaseCurrency(), op.AmountBase.StringFixed(2), s.BaseCurrency())
	}
	return nil
}

// Balance returns the signed sum of every operation on account; unknown accounts have zero balance
func (s *Service) Balance(account string) decimal.Decimal {
	total := decimal.Zero
	for _, op := range s.repo.FindByAccount(account) {
		total = total.Add(op.Signed())
	}
	return total
}

// TransferLimit reports how much of the transfer limit is used in the window ending at date
func (s *Service) TransferLimit(account string, date time.Time) models.LimitStatus {
	start, end := utils.Window(date, s.windowDays)
	used := transferredWithin(s.repo.FindByAccount(account), start, end)
	remaining := s.limit.Sub(used)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return models.LimitStatus{
		Account:     account,
		WindowStart: utils.FormatDate(start),
		WindowEnd:   utils.FormatDate(end),
		Used:        used,
		Limit:       s.limit,
		Remaining:   remaining,
		Currency:    s.BaseCurrency(),
	}
}

func (s *Service) reject(method models.Method, err error) error {
	label := string(method)
	if !method.Valid() {
		label = "unknown"
	}
	metrics.OperationsTotal.WithLabelValues(label, KindOf(err)).Inc()
	s.log.Warnf("Operation rejected (%s): %v", KindOf(err), err)
	return err
}

func transferredWithin(history []models.Operation, start, end time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, h := range history {
		if h.Method == models.MethodTransfer && utils.InWindow(h.Date, start, end) {
			sum = sum.Add(h.AmountBase)
		}
	}
	return sum
}
