package wallet

import (
	"context"
	"errors"
	"fmt"

	"quizbot/internal/logger"
	"quizbot/internal/metrics"
	"quizbot/internal/storage"

	"go.uber.org/zap"
)

// ErrInvalidAmount is returned when a credit or debit amount is not positive.
var ErrInvalidAmount = errors.New("invalid amount")

// Service moves funds in and out of user wallets. Every balance change is
// committed together with exactly one ledger entry; no call applies
// partially.
type Service struct {
	store *storage.Store
	log   *logger.Logger
}

// New creates a wallet service over the given store.
func New(store *storage.Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Credit increases a user's balance and returns the new value.
func (s *Service) Credit(ctx context.Context, userID, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit of %d: %w", amount, ErrInvalidAmount)
	}
	var balance int64
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		var err error
		balance, err = s.CreditTx(ctx, tx, userID, amount, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug(userID, "wallet_credit", zap.Int64("amount", amount), zap.Int64("balance", balance))
	return balance, nil
}

// Debit decreases a user's balance and returns the new value. A debit that
// would push the balance negative fails with storage.ErrInsufficientFunds and
// changes nothing.
func (s *Service) Debit(ctx context.Context, userID, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit of %d: %w", amount, ErrInvalidAmount)
	}
	var balance int64
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		var err error
		balance, err = s.DebitTx(ctx, tx, userID, amount, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug(userID, "wallet_debit", zap.Int64("amount", amount), zap.Int64("balance", balance))
	return balance, nil
}

// CreditTx applies a credit inside an existing unit of work, so callers can
// combine it with other writes that must land atomically.
func (s *Service) CreditTx(ctx context.Context, tx *storage.Tx, userID, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit of %d: %w", amount, ErrInvalidAmount)
	}
	balance, err := tx.ApplyBalanceDelta(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	if _, err := tx.AppendTransaction(ctx, userID, amount, storage.TxKindCredit, description); err != nil {
		return 0, err
	}
	metrics.TransactionsTotal.WithLabelValues("credit").Inc()
	return balance, nil
}

// DebitTx applies a debit inside an existing unit of work. The ledger entry
// is recorded with a negative amount.
func (s *Service) DebitTx(ctx context.Context, tx *storage.Tx, userID, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit of %d: %w", amount, ErrInvalidAmount)
	}
	balance, err := tx.ApplyBalanceDelta(ctx, userID, -amount)
	if err != nil {
		return 0, err
	}
	if _, err := tx.AppendTransaction(ctx, userID, -amount, storage.TxKindDebit, description); err != nil {
		return 0, err
	}
	metrics.TransactionsTotal.WithLabelValues("debit").Inc()
	return balance, nil
}
