package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"quizbot/internal/logger"
	"quizbot/internal/metrics"
	"quizbot/internal/storage"
	"quizbot/internal/wallet"

	"go.uber.org/zap"
)

// Payout is one winner's share of a settlement.
type Payout struct {
	ParticipantID int64 `json:"participant_id"`
	UserID        int64 `json:"user_id"`
	Stake         int64 `json:"stake"`
	Amount        int64 `json:"amount"` // stake returned plus share of the losers' pool
}

// SettlementResult summarizes one settlement.
type SettlementResult struct {
	QuestionID       int64          `json:"question_id"`
	CorrectOption    storage.Option `json:"correct_option"`
	Winners          []Payout       `json:"winners"`
	Losers           []int64        `json:"losers"` // participant ids marked LOST
	LosersPool       int64          `json:"losers_pool"`
	TotalDistributed int64          `json:"total_distributed"`
}

// SettlementService resolves closed questions and distributes the pool.
type SettlementService struct {
	store  *storage.Store
	wallet *wallet.Service
	log    *logger.Logger
}

// NewSettlementService creates a settlement service.
func NewSettlementService(store *storage.Store, w *wallet.Service, log *logger.Logger) *SettlementService {
	return &SettlementService{store: store, wallet: w, log: log}
}

// Settle transitions a CLOSED question to SETTLED, records the correct
// option, and pays the winners pari-mutuel: each recovers their stake plus a
// share of the losers' pool proportional to their stake weight. The status
// transition, every participant resolution, and every winner credit commit in
// a single unit of work.
//
// The CLOSED->SETTLED transition is a compare-and-swap, so of two concurrent
// calls exactly one settles; the other sees ErrAlreadySettled. A question
// that is still OPEN fails with ErrQuestionStillOpen; the operator closes it
// first.
//
// If nobody picked the correct option every participant is marked LOST and
// the pool is retained; stakes are not refunded.
func (s *SettlementService) Settle(ctx context.Context, questionID int64, correct storage.Option) (*SettlementResult, error) {
	if correct != storage.OptionA && correct != storage.OptionB {
		return nil, fmt.Errorf("correct option %q: %w", correct, ErrInvalidOption)
	}

	result := &SettlementResult{QuestionID: questionID, CorrectOption: correct}
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		err := tx.SetQuestionStatus(ctx, questionID, storage.QuestionStatusClosed, storage.QuestionStatusSettled, correct)
		if errors.Is(err, storage.ErrStaleStatus) {
			question, gerr := tx.GetQuestion(ctx, questionID)
			if gerr != nil {
				return gerr
			}
			if question.Status == storage.QuestionStatusSettled {
				return fmt.Errorf("question %d: %w", questionID, ErrAlreadySettled)
			}
			return fmt.Errorf("question %d: %w", questionID, ErrQuestionStillOpen)
		}
		if err != nil {
			return err
		}

		participants, err := tx.ListParticipants(ctx, questionID)
		if err != nil {
			return err
		}

		var winners []storage.Participant
		for _, p := range participants {
			if p.Option == correct {
				winners = append(winners, p)
			} else {
				result.Losers = append(result.Losers, p.ID)
				result.LosersPool += p.Stake
			}
		}

		payouts := computePayouts(winners, result.LosersPool)
		for i, w := range winners {
			description := fmt.Sprintf("Payout for question #%d, option %s", questionID, correct)
			if _, err := s.wallet.CreditTx(ctx, tx, w.UserID, payouts[i], description); err != nil {
				return err
			}
			if err := tx.SetParticipantStatus(ctx, w.ID, storage.BetStatusWon); err != nil {
				return err
			}
			result.Winners = append(result.Winners, Payout{
				ParticipantID: w.ID,
				UserID:        w.UserID,
				Stake:         w.Stake,
				Amount:        payouts[i],
			})
			result.TotalDistributed += payouts[i]
		}
		for _, id := range result.Losers {
			if err := tx.SetParticipantStatus(ctx, id, storage.BetStatusLost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.Inc()
	metrics.PayoutUnits.Add(float64(result.TotalDistributed))
	s.log.Info(0, "question_settled",
		zap.Int64("question_id", questionID),
		zap.String("correct_option", string(correct)),
		zap.Int("winners", len(result.Winners)),
		zap.Int("losers", len(result.Losers)),
		zap.Int64("distributed", result.TotalDistributed))
	return result, nil
}

// computePayouts splits the losers' pool across the winners in proportion to
// their stakes, in integer currency units, with no residue: the returned
// amounts (stake plus share) always sum to the winning stakes plus the whole
// pool. Truncated fractions are handed back one unit at a time to the winners
// with the largest remainders, ties going to the earlier participant.
func computePayouts(winners []storage.Participant, losersPool int64) []int64 {
	if len(winners) == 0 {
		return nil
	}

	var totalWinnerStakes int64
	for _, w := range winners {
		totalWinnerStakes += w.Stake
	}

	payouts := make([]int64, len(winners))
	remainders := make([]int, 0, len(winners))
	var distributed int64
	for i, w := range winners {
		share := losersPool * w.Stake / totalWinnerStakes
		payouts[i] = w.Stake + share
		distributed += share
		remainders = append(remainders, i)
	}

	leftover := losersPool - distributed
	sort.SliceStable(remainders, func(a, b int) bool {
		ra := losersPool * winners[remainders[a]].Stake % totalWinnerStakes
		rb := losersPool * winners[remainders[b]].Stake % totalWinnerStakes
		if ra != rb {
			return ra > rb
		}
		return winners[remainders[a]].ID < winners[remainders[b]].ID
	})
	for i := int64(0); i < leftover; i++ {
		payouts[remainders[i]]++
	}
	return payouts
}
