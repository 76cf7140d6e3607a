package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err, "failed to initialize test store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnsureUserCreatesWithWelcomeBonus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user, created, err := store.EnsureUser(ctx, 12345, "testuser", 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(12345), user.ID)
	assert.Equal(t, "testuser", user.Name)
	assert.Equal(t, int64(1), user.Balance)

	// The welcome credit must carry a ledger entry.
	entries, err := store.ListTransactions(ctx, 12345)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TxKindCredit, entries[0].Kind)
	assert.Equal(t, int64(1), entries[0].Amount)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, created, err := store.EnsureUser(ctx, 99999, "uniqueuser", 1)
	require.NoError(t, err)
	assert.True(t, created)

	user, created, err := store.EnsureUser(ctx, 99999, "uniqueuser", 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), user.Balance, "welcome bonus must not be granted twice")
}

func TestGetUserNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUser(context.Background(), 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyBalanceDeltaGuardsNegative(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, err := store.EnsureUser(ctx, 111, "poor", 10)
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx *Tx) error {
		_, err := tx.ApplyBalanceDelta(ctx, 111, -11)
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	user, err := store.GetUser(ctx, 111)
	require.NoError(t, err)
	assert.Equal(t, int64(10), user.Balance, "refused debit must not change the balance")
}

func TestApplyBalanceDeltaMissingUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.InTx(ctx, func(tx *Tx) error {
		_, err := tx.ApplyBalanceDelta(ctx, 777, -5)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateQuestionOpensIt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var question *Question
	err := store.InTx(ctx, func(tx *Tx) error {
		var err error
		question, err = tx.CreateQuestion(ctx, "Will it rain tomorrow?", "Yes", "No", time.Now().Add(24*time.Hour))
		return err
	})
	require.NoError(t, err)
	assert.NotZero(t, question.ID)
	assert.Equal(t, QuestionStatusOpen, question.Status)
	assert.Equal(t, "Yes", question.OptionA)
	assert.Equal(t, "No", question.OptionB)
	assert.Empty(t, question.CorrectOption)
}

func TestQuestionIDsAreMonotonic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var first, second *Question
	err := store.InTx(ctx, func(tx *Tx) error {
		var err error
		first, err = tx.CreateQuestion(ctx, "First?", "A", "B", time.Now().Add(time.Hour))
		if err != nil {
			return err
		}
		second, err = tx.CreateQuestion(ctx, "Second?", "A", "B", time.Now().Add(time.Hour))
		return err
	})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestSetQuestionStatusCAS(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var question *Question
	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		var err error
		question, err = tx.CreateQuestion(ctx, "CAS?", "A", "B", time.Now().Add(time.Hour))
		return err
	}))

	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		return tx.SetQuestionStatus(ctx, question.ID, QuestionStatusOpen, QuestionStatusClosed, "")
	}))

	// Second attempt of the same transition observes the stale status.
	err := store.InTx(ctx, func(tx *Tx) error {
		return tx.SetQuestionStatus(ctx, question.ID, QuestionStatusOpen, QuestionStatusClosed, "")
	})
	assert.ErrorIs(t, err, ErrStaleStatus)

	// Closed -> Settled records the correct option.
	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		return tx.SetQuestionStatus(ctx, question.ID, QuestionStatusClosed, QuestionStatusSettled, OptionA)
	}))

	updated, err := store.GetQuestion(ctx, question.ID)
	require.NoError(t, err)
	assert.Equal(t, QuestionStatusSettled, updated.Status)
	assert.Equal(t, OptionA, updated.CorrectOption)
}

func TestSetQuestionStatusNotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.InTx(context.Background(), func(tx *Tx) error {
		return tx.SetQuestionStatus(context.Background(), 999, QuestionStatusOpen, QuestionStatusClosed, "")
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParticipantsLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, err := store.EnsureUser(ctx, 222, "bettor", 100)
	require.NoError(t, err)

	var question *Question
	var participant *Participant
	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		question, err = tx.CreateQuestion(ctx, "Bets?", "A", "B", time.Now().Add(time.Hour))
		if err != nil {
			return err
		}
		participant, err = tx.CreateParticipant(ctx, 222, question.ID, OptionA, 25)
		return err
	}))
	assert.Equal(t, BetStatusPending, participant.Status)

	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		return tx.SetParticipantStatus(ctx, participant.ID, BetStatusWon)
	}))

	// Resolving the same record twice is refused.
	err = store.InTx(ctx, func(tx *Tx) error {
		return tx.SetParticipantStatus(ctx, participant.ID, BetStatusLost)
	})
	assert.ErrorIs(t, err, ErrStaleStatus)

	got, err := store.GetParticipant(ctx, participant.ID)
	require.NoError(t, err)
	assert.Equal(t, BetStatusWon, got.Status)
}

func TestListUserBetsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, err := store.EnsureUser(ctx, 333, "history", 100)
	require.NoError(t, err)

	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		q1, err := tx.CreateQuestion(ctx, "First question?", "Yes", "No", time.Now().Add(time.Hour))
		if err != nil {
			return err
		}
		q2, err := tx.CreateQuestion(ctx, "Second question?", "Up", "Down", time.Now().Add(time.Hour))
		if err != nil {
			return err
		}
		if _, err := tx.CreateParticipant(ctx, 333, q1.ID, OptionA, 10); err != nil {
			return err
		}
		_, err = tx.CreateParticipant(ctx, 333, q2.ID, OptionB, 20)
		return err
	}))

	bets, err := store.ListUserBets(ctx, 333)
	require.NoError(t, err)
	require.Len(t, bets, 2)
	assert.Equal(t, "Second question?", bets[0].QuestionText)
	assert.Equal(t, "Down", bets[0].OptionLabel)
	assert.Equal(t, "First question?", bets[1].QuestionText)
	assert.Equal(t, "Yes", bets[1].OptionLabel)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, err := store.EnsureUser(ctx, 444, "ledger", 0)
	require.NoError(t, err)

	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.ApplyBalanceDelta(ctx, 444, 50); err != nil {
			return err
		}
		if _, err := tx.AppendTransaction(ctx, 444, 50, TxKindCredit, "first"); err != nil {
			return err
		}
		if _, err := tx.ApplyBalanceDelta(ctx, 444, -20); err != nil {
			return err
		}
		_, err := tx.AppendTransaction(ctx, 444, -20, TxKindDebit, "second")
		return err
	}))

	entries, err := store.ListTransactions(ctx, 444)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Description)
	assert.Equal(t, "first", entries[1].Description)

	sum, err := store.LedgerSum(ctx, 444)
	require.NoError(t, err)
	user, err := store.GetUser(ctx, 444)
	require.NoError(t, err)
	assert.Equal(t, user.Balance, sum, "balance must equal the ledger sum")
}

func TestInTxRollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, err := store.EnsureUser(ctx, 555, "atomic", 100)
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.ApplyBalanceDelta(ctx, 555, -60); err != nil {
			return err
		}
		// Second debit exceeds what is left; the first must unwind with it.
		_, err := tx.ApplyBalanceDelta(ctx, 555, -60)
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	user, err := store.GetUser(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.Balance)
}

func TestListExpiredOpen(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.CreateQuestion(ctx, "Expired?", "A", "B", now.Add(-time.Minute)); err != nil {
			return err
		}
		_, err := tx.CreateQuestion(ctx, "Fresh?", "A", "B", now.Add(time.Hour))
		return err
	}))

	expired, err := store.ListExpiredOpen(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "Expired?", expired[0].Text)
}
