package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const participantColumns = "id, user_id, question_id, option, stake, status, placed_at"

func scanParticipant(rows *sql.Rows) (Participant, error) {
	var p Participant
	err := rows.Scan(&p.ID, &p.UserID, &p.QuestionID, &p.Option, &p.Stake, &p.Status, &p.PlacedAt)
	if err != nil {
		return Participant{}, unavailable("scan participant", err)
	}
	return p, nil
}

// CreateParticipant inserts a PENDING participant row for the stake.
func (tx *Tx) CreateParticipant(ctx context.Context, userID, questionID int64, option Option, stake int64) (*Participant, error) {
	res, err := tx.tx.ExecContext(ctx, `
		INSERT INTO participants (user_id, question_id, option, stake, status)
		VALUES (?, ?, ?, ?, ?)
	`, userID, questionID, option, stake, BetStatusPending)
	if err != nil {
		return nil, unavailable("insert participant", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, unavailable("participant id", err)
	}

	var p Participant
	err = tx.tx.QueryRowContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE id = ?
	`, id).Scan(&p.ID, &p.UserID, &p.QuestionID, &p.Option, &p.Stake, &p.Status, &p.PlacedAt)
	if err != nil {
		return nil, unavailable("reread participant", err)
	}
	return &p, nil
}

// ListParticipants returns all participant rows for a question, in placement
// order.
func (tx *Tx) ListParticipants(ctx context.Context, questionID int64) ([]Participant, error) {
	rows, err := tx.tx.QueryContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE question_id = ?
		ORDER BY id
	`, questionID)
	if err != nil {
		return nil, unavailable("list participants", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate participants", err)
	}
	return participants, nil
}

// SetParticipantStatus resolves a PENDING participant to WON or LOST. A row
// that is no longer PENDING is left alone and reported as ErrStaleStatus;
// settlement resolves each record exactly once.
func (tx *Tx) SetParticipantStatus(ctx context.Context, id int64, status BetStatus) error {
	res, err := tx.tx.ExecContext(ctx, `
		UPDATE participants
		SET status = ?
		WHERE id = ? AND status = ?
	`, status, id, BetStatusPending)
	if err != nil {
		return unavailable("update participant status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update participant status", err)
	}
	if n == 0 {
		return fmt.Errorf("participant %d not pending: %w", id, ErrStaleStatus)
	}
	return nil
}

// ListUserBets returns a user's bets joined with their questions, newest
// first.
func (s *Store) ListUserBets(ctx context.Context, userID int64) ([]BetHistoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.question_id, p.option, p.stake, p.status, p.placed_at,
		       q.text, q.option_a, q.option_b, q.status
		FROM participants p
		JOIN questions q ON q.id = p.question_id
		WHERE p.user_id = ?
		ORDER BY p.id DESC
	`, userID)
	if err != nil {
		return nil, unavailable("list user bets", err)
	}
	defer rows.Close()

	var bets []BetHistoryItem
	for rows.Next() {
		var b BetHistoryItem
		var optionA, optionB string
		err := rows.Scan(&b.ID, &b.UserID, &b.QuestionID, &b.Option, &b.Stake, &b.Status, &b.PlacedAt,
			&b.QuestionText, &optionA, &optionB, &b.QuestionStatus)
		if err != nil {
			return nil, unavailable("scan user bet", err)
		}
		if b.Option == OptionB {
			b.OptionLabel = optionB
		} else {
			b.OptionLabel = optionA
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate user bets", err)
	}
	return bets, nil
}

// GetParticipant retrieves a single participant row.
func (s *Store) GetParticipant(ctx context.Context, id int64) (*Participant, error) {
	var p Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE id = ?
	`, id).Scan(&p.ID, &p.UserID, &p.QuestionID, &p.Option, &p.Stake, &p.Status, &p.PlacedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant: %w", ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get participant", err)
	}
	return &p, nil
}
