package storage

import (
	"time"
)

// User is a wallet holder. The ID is assigned externally (the Telegram user
// id) and the balance is kept in the smallest currency unit.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Balance   int64     `json:"balance" db:"balance"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TxKind classifies a ledger entry
type TxKind string

const (
	TxKindCredit TxKind = "CREDIT"
	TxKindDebit  TxKind = "DEBIT"
)

// Transaction is an append-only ledger entry. Amount is signed: positive for
// credits, negative for debits, so a user's balance always equals the sum of
// their entries.
type Transaction struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Amount      int64     `json:"amount" db:"amount"`
	Kind        TxKind    `json:"kind" db:"kind"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// QuestionStatus represents the lifecycle state of a question
type QuestionStatus string

const (
	QuestionStatusOpen    QuestionStatus = "OPEN"
	QuestionStatusClosed  QuestionStatus = "CLOSED"
	QuestionStatusSettled QuestionStatus = "SETTLED"
)

// Option is one of the two answers a question offers
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// Question is a binary-choice question users stake on. Transitions are
// one-directional: OPEN -> CLOSED -> SETTLED, never back.
type Question struct {
	ID            int64          `json:"id" db:"id"`
	Text          string         `json:"text" db:"text"`
	OptionA       string         `json:"option_a" db:"option_a"`
	OptionB       string         `json:"option_b" db:"option_b"`
	Deadline      time.Time      `json:"deadline" db:"deadline"`
	Status        QuestionStatus `json:"status" db:"status"`
	CorrectOption Option         `json:"correct_option,omitempty" db:"correct_option"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// OptionLabel returns the display label for the given option token.
func (q *Question) OptionLabel(opt Option) string {
	if opt == OptionB {
		return q.OptionB
	}
	return q.OptionA
}

// BetStatus represents the settlement state of a participant record
type BetStatus string

const (
	BetStatusPending BetStatus = "PENDING"
	BetStatusWon     BetStatus = "WON"
	BetStatusLost    BetStatus = "LOST"
)

// Participant is a single stake placed on a question. A user may hold several
// participant rows for the same question; each is settled independently.
type Participant struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	QuestionID int64     `json:"question_id" db:"question_id"`
	Option     Option    `json:"option" db:"option"`
	Stake      int64     `json:"stake" db:"stake"`
	Status     BetStatus `json:"status" db:"status"`
	PlacedAt   time.Time `json:"placed_at" db:"placed_at"`
}

// BetHistoryItem is a participant row joined with its question, for history
// listings.
type BetHistoryItem struct {
	Participant
	QuestionText   string         `json:"question_text"`
	OptionLabel    string         `json:"option_label"`
	QuestionStatus QuestionStatus `json:"question_status"`
}
