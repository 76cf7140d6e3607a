package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const questionColumns = "id, text, option_a, option_b, deadline, status, correct_option, created_at"

func scanQuestion(row *sql.Row) (*Question, error) {
	var q Question
	err := row.Scan(&q.ID, &q.Text, &q.OptionA, &q.OptionB, &q.Deadline, &q.Status, &q.CorrectOption, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question: %w", ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("scan question", err)
	}
	return &q, nil
}

func getQuestion(ctx context.Context, q dbtx, id int64) (*Question, error) {
	return scanQuestion(q.QueryRowContext(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE id = ?
	`, id))
}

// GetQuestion retrieves a question by id. Returns ErrNotFound if absent.
func (s *Store) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	return getQuestion(ctx, s.db, id)
}

// GetQuestion retrieves a question inside the unit of work.
func (tx *Tx) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	return getQuestion(ctx, tx.tx, id)
}

// CreateQuestion inserts an OPEN question and returns it.
func (tx *Tx) CreateQuestion(ctx context.Context, text, optionA, optionB string, deadline time.Time) (*Question, error) {
	res, err := tx.tx.ExecContext(ctx, `
		INSERT INTO questions (text, option_a, option_b, deadline, status)
		VALUES (?, ?, ?, ?, ?)
	`, text, optionA, optionB, deadline.UTC(), QuestionStatusOpen)
	if err != nil {
		return nil, unavailable("insert question", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, unavailable("question id", err)
	}
	return getQuestion(ctx, tx.tx, id)
}

// SetQuestionStatus transitions a question from one status to another as a
// compare-and-swap: the update only lands if the stored status still equals
// from. A lost race returns ErrStaleStatus; callers re-read to find out who
// won. correct is recorded alongside the transition when non-empty.
func (tx *Tx) SetQuestionStatus(ctx context.Context, id int64, from, to QuestionStatus, correct Option) error {
	var res sql.Result
	var err error
	if correct != "" {
		res, err = tx.tx.ExecContext(ctx, `
			UPDATE questions
			SET status = ?, correct_option = ?
			WHERE id = ? AND status = ?
		`, to, correct, id, from)
	} else {
		res, err = tx.tx.ExecContext(ctx, `
			UPDATE questions
			SET status = ?
			WHERE id = ? AND status = ?
		`, to, id, from)
	}
	if err != nil {
		return unavailable("update question status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update question status", err)
	}
	if n == 0 {
		if _, gerr := getQuestion(ctx, tx.tx, id); gerr != nil {
			return gerr
		}
		return fmt.Errorf("question %d not %s: %w", id, from, ErrStaleStatus)
	}
	return nil
}

func listQuestions(ctx context.Context, q dbtx, query string, args ...any) ([]Question, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list questions", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var qn Question
		if err := rows.Scan(&qn.ID, &qn.Text, &qn.OptionA, &qn.OptionB, &qn.Deadline, &qn.Status, &qn.CorrectOption, &qn.CreatedAt); err != nil {
			return nil, unavailable("scan question", err)
		}
		questions = append(questions, qn)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate questions", err)
	}
	return questions, nil
}

// ListOpenQuestions returns all OPEN questions, newest first.
func (s *Store) ListOpenQuestions(ctx context.Context) ([]Question, error) {
	return listQuestions(ctx, s.db, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE status = ?
		ORDER BY id DESC
	`, QuestionStatusOpen)
}

// ListExpiredOpen returns OPEN questions whose deadline is at or before now.
func (s *Store) ListExpiredOpen(ctx context.Context, now time.Time) ([]Question, error) {
	return listQuestions(ctx, s.db, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE status = ? AND deadline <= ?
		ORDER BY id
	`, QuestionStatusOpen, now.UTC())
}
