package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = "id, name, balance, created_at, updated_at"

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("scan user", err)
	}
	return &u, nil
}

func getUser(ctx context.Context, q dbtx, id int64) (*User, error) {
	return scanUser(q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?
	`, id))
}

// GetUser retrieves a user by id. Returns ErrNotFound if absent.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, s.db, id)
}

// GetUser retrieves a user inside the unit of work.
func (tx *Tx) GetUser(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, tx.tx, id)
}

// CreateUser inserts a user with a zero balance. Returns ErrAlreadyExists if
// the id is taken.
func (tx *Tx) CreateUser(ctx context.Context, id int64, name string) (*User, error) {
	if _, err := getUser(ctx, tx.tx, id); err == nil {
		return nil, fmt.Errorf("user %d: %w", id, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO users (id, name, balance)
		VALUES (?, ?, 0)
	`, id, name)
	if err != nil {
		return nil, unavailable("insert user", err)
	}
	return getUser(ctx, tx.tx, id)
}

// ApplyBalanceDelta adjusts a user's balance and returns the new value. The
// guard in the WHERE clause makes the non-negative invariant atomic: a debit
// that would go negative changes nothing and returns ErrInsufficientFunds.
func (tx *Tx) ApplyBalanceDelta(ctx context.Context, userID, delta int64) (int64, error) {
	var balance int64
	err := tx.tx.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND balance + ? >= 0
		RETURNING balance
	`, delta, userID, delta).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// Nothing updated: either the user is missing or the guard refused.
		if _, gerr := getUser(ctx, tx.tx, userID); gerr != nil {
			return 0, gerr
		}
		return 0, fmt.Errorf("debit of %d refused for user %d: %w", -delta, userID, ErrInsufficientFunds)
	}
	if err != nil {
		return 0, unavailable("update balance", err)
	}
	return balance, nil
}

// EnsureUser returns the user with the given id, creating it with the welcome
// credit (and its ledger entry) if this is the first interaction. The second
// return value reports whether the user was created.
func (s *Store) EnsureUser(ctx context.Context, id int64, name string, welcomeBonus int64) (*User, bool, error) {
	if user, err := s.GetUser(ctx, id); err == nil {
		return user, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	var user *User
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		user, err = tx.CreateUser(ctx, id, name)
		if err != nil {
			return err
		}
		if welcomeBonus > 0 {
			if _, err := tx.ApplyBalanceDelta(ctx, id, welcomeBonus); err != nil {
				return err
			}
			if _, err := tx.AppendTransaction(ctx, id, welcomeBonus, TxKindCredit, "Welcome bonus for joining!"); err != nil {
				return err
			}
			user.Balance = welcomeBonus
		}
		return nil
	})
	if err != nil {
		// A concurrent first interaction may have won the race.
		if errors.Is(err, ErrAlreadyExists) {
			existing, gerr := s.GetUser(ctx, id)
			if gerr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return user, true, nil
}
