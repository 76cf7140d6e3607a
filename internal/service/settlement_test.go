package service

import (
	"context"
	"testing"
	"time"

	"quizbot/internal/logger"
	"quizbot/internal/storage"
	"quizbot/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store      *storage.Store
	wallet     *wallet.Service
	questions  *QuestionService
	betting    *BettingService
	settlement *SettlementService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	lg := logger.Nop()
	w := wallet.New(store, lg)
	return &testEnv{
		store:      store,
		wallet:     w,
		questions:  NewQuestionService(store, lg),
		betting:    NewBettingService(store, w, lg),
		settlement: NewSettlementService(store, w, lg),
	}
}

func (e *testEnv) addUser(t *testing.T, id int64, balance int64) {
	t.Helper()
	_, _, err := e.store.EnsureUser(context.Background(), id, "user", 0)
	require.NoError(t, err)
	if balance > 0 {
		_, err = e.wallet.Credit(context.Background(), id, balance, "seed")
		require.NoError(t, err)
	}
}

func (e *testEnv) balance(t *testing.T, id int64) int64 {
	t.Helper()
	user, err := e.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return user.Balance
}

func (e *testEnv) openQuestion(t *testing.T) *storage.Question {
	t.Helper()
	q, err := e.questions.Open(context.Background(), "Will it happen?", "Yes", "No", time.Now().Add(time.Hour))
	require.NoError(t, err)
	return q
}

// Walkthrough of the whole game: a new user joins with the welcome point, an
// operator tops them up, they stake on the winning side against another
// player, and settlement pays stake plus the loser's pool.
func TestFullGameScenario(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, created, err := env.store.EnsureUser(ctx, 1, "winner", 1)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, int64(1), env.balance(t, 1))

	_, err = env.wallet.Credit(ctx, 1, 100, "Operator credit")
	require.NoError(t, err)
	assert.Equal(t, int64(101), env.balance(t, 1))

	env.addUser(t, 2, 50)
	question := env.openQuestion(t)

	_, err = env.betting.PlaceBet(ctx, 1, question.ID, storage.OptionA, 10, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(91), env.balance(t, 1))

	_, err = env.betting.PlaceBet(ctx, 2, question.ID, storage.OptionB, 20, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(30), env.balance(t, 2))

	require.NoError(t, env.questions.ForceClose(ctx, question.ID))

	result, err := env.settlement.Settle(ctx, question.ID, storage.OptionA)
	require.NoError(t, err)
	require.Len(t, result.Winners, 1)
	require.Len(t, result.Losers, 1)
	assert.Equal(t, int64(20), result.LosersPool)
	assert.Equal(t, int64(30), result.Winners[0].Amount, "stake 10 plus the whole 20 pool")
	assert.Equal(t, int64(121), env.balance(t, 1))
	assert.Equal(t, int64(30), env.balance(t, 2))

	// Every participant is resolved, none left pending.
	bets, err := env.store.ListUserBets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, storage.BetStatusWon, bets[0].Status)

	bets, err = env.store.ListUserBets(ctx, 2)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, storage.BetStatusLost, bets[0].Status)
}

func TestSettleConservesFunds(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	// Stakes chosen so the pool does not divide evenly across winners.
	stakes := map[int64]struct {
		option storage.Option
		stake  int64
	}{
		1: {storage.OptionA, 7},
		2: {storage.OptionA, 13},
		3: {storage.OptionA, 29},
		4: {storage.OptionB, 17},
		5: {storage.OptionB, 23},
	}

	question := env.openQuestion(t)
	var totalBefore int64
	for id, s := range stakes {
		env.addUser(t, id, 100)
		_, err := env.betting.PlaceBet(ctx, id, question.ID, s.option, s.stake, time.Now())
		require.NoError(t, err)
	}
	for id := range stakes {
		totalBefore += env.balance(t, id)
	}

	require.NoError(t, env.questions.ForceClose(ctx, question.ID))
	result, err := env.settlement.Settle(ctx, question.ID, storage.OptionA)
	require.NoError(t, err)

	assert.Equal(t, int64(40), result.LosersPool)

	var totalPayout, totalWinnerStakes int64
	for _, w := range result.Winners {
		totalPayout += w.Amount
		totalWinnerStakes += w.Stake
	}
	assert.Equal(t, totalWinnerStakes+result.LosersPool, totalPayout,
		"payouts must return the winning stakes plus the whole pool, exactly")

	// System-wide money after settlement equals money before plus the
	// returned stakes and pool.
	var totalAfter int64
	for id := range stakes {
		totalAfter += env.balance(t, id)
	}
	assert.Equal(t, totalBefore+totalPayout, totalAfter)
}

func TestSettleNoLosersReturnsStakesOnly(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	env.addUser(t, 1, 100)
	env.addUser(t, 2, 100)
	question := env.openQuestion(t)

	_, err := env.betting.PlaceBet(ctx, 1, question.ID, storage.OptionA, 40, time.Now())
	require.NoError(t, err)
	_, err = env.betting.PlaceBet(ctx, 2, question.ID, storage.OptionA, 60, time.Now())
	require.NoError(t, err)

	require.NoError(t, env.questions.ForceClose(ctx, question.ID))
	result, err := env.settlement.Settle(ctx, question.ID, storage.OptionA)
	require.NoError(t, err)

	assert.Zero(t, result.LosersPool)
	assert.Equal(t, int64(100), env.balance(t, 1))
	assert.Equal(t, int64(100), env.balance(t, 2))
}

func TestSettleNoWinnersRetainsPool(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	env.addUser(t, 1, 100)
	env.addUser(t, 2, 100)
	question := env.openQuestion(t)

	_, err := env.betting.PlaceBet(ctx, 1, question.ID, storage.OptionB, 25, time.Now())
	require.NoError(t, err)
	_, err = env.betting.PlaceBet(ctx, 2, question.ID, storage.OptionB, 35, time.Now())
	require.NoError(t, err)

	require.NoError(t, env.questions.ForceClose(ctx, question.ID))
	result, err := env.settlement.Settle(ctx, question.ID, storage.OptionA)
	require.NoError(t, err)

	assert.Empty(t, result.Winners)
	assert.Len(t, result.Losers, 2)
	assert.Zero(t, result.TotalDistributed)
	// Stakes are not refunded; the question still ends up settled.
	assert.Equal(t, int64(75), env.balance(t, 1))
	assert.Equal(t, int64(65), env.balance(t, 2))

	updated, err := env.store.GetQuestion(ctx, question.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.QuestionStatusSettled, updated.Status)
}

func TestSettleIsNotRepeatable(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	env.addUser(t, 1, 100)
	env.addUser(t, 2, 100)
	question := env.openQuestion(t)

	_, err := env.betting.PlaceBet(ctx, 1, question.ID, storage.OptionA, 10, time.Now())
	require.NoError(t, err)
	_, err = env.betting.PlaceBet(ctx, 2, question.ID, storage.OptionB, 10, time.Now())
	require.NoError(t, err)

	require.NoError(t, env.questions.ForceClose(ctx, question.ID))
	_, err = env.settlement.Settle(ctx, question.ID, storage.OptionA)
	require.NoError(t, err)

	_, err = env.settlement.Settle(ctx, question.ID, storage.OptionA)
	assert.ErrorIs(t, err, ErrAlreadySettled)

	// The winner was not paid twice.
	assert.Equal(t, int64(110), env.balance(t, 1))
}

func TestSettleOpenQuestionRefused(t *testing.T) {
	env := setupServices(t)
	question := env.openQuestion(t)

	_, err := env.settlement.Settle(context.Background(), question.ID, storage.OptionA)
	assert.ErrorIs(t, err, ErrQuestionStillOpen)
}

func TestSettleValidation(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, err := env.settlement.Settle(ctx, 1, storage.Option("C"))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = env.settlement.Settle(ctx, 999, storage.OptionA)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestComputePayoutsExactDistribution(t *testing.T) {
	cases := []struct {
		name   string
		stakes []int64
		pool   int64
		want   []int64
	}{
		{
			name:   "even split",
			stakes: []int64{10, 10},
			pool:   20,
			want:   []int64{20, 20},
		},
		{
			name:   "proportional",
			stakes: []int64{10, 30},
			pool:   40,
			want:   []int64{20, 60},
		},
		{
			name:   "remainder goes to largest fraction",
			stakes: []int64{10, 20},
			pool:   5,
			want:   []int64{12, 23}, // shares 1.66 and 3.33; the extra unit lands on .66
		},
		{
			name:   "tied remainders favor the earlier participant",
			stakes: []int64{10, 10},
			pool:   5,
			want:   []int64{13, 12},
		},
		{
			name:   "empty pool returns stakes",
			stakes: []int64{7, 11},
			pool:   0,
			want:   []int64{7, 11},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			winners := make([]storage.Participant, len(tc.stakes))
			var totalStakes int64
			for i, s := range tc.stakes {
				winners[i] = storage.Participant{ID: int64(i + 1), Stake: s}
				totalStakes += s
			}

			payouts := computePayouts(winners, tc.pool)
			assert.Equal(t, tc.want, payouts)

			var sum int64
			for _, p := range payouts {
				sum += p
			}
			assert.Equal(t, totalStakes+tc.pool, sum)
		})
	}
}

func TestComputePayoutsNoWinners(t *testing.T) {
	assert.Nil(t, computePayouts(nil, 100))
}
