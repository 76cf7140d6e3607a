package storage

import (
	"context"
)

// AppendTransaction records a ledger entry for the user. Entries are
// append-only; nothing ever updates or deletes them.
func (tx *Tx) AppendTransaction(ctx context.Context, userID, amount int64, kind TxKind, description string) (int64, error) {
	res, err := tx.tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, amount, kind, description)
		VALUES (?, ?, ?, ?)
	`, userID, amount, kind, description)
	if err != nil {
		return 0, unavailable("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable("transaction id", err)
	}
	return id, nil
}

// ListTransactions returns a user's ledger entries, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, kind, description, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, unavailable("list transactions", err)
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.Description, &t.CreatedAt); err != nil {
			return nil, unavailable("scan transaction", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate transactions", err)
	}
	return entries, nil
}

// LedgerSum returns the signed sum of a user's ledger entries. It should
// always equal the user's balance.
func (s *Store) LedgerSum(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ?
	`, userID).Scan(&sum)
	if err != nil {
		return 0, unavailable("sum transactions", err)
	}
	return sum, nil
}
