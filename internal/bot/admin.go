package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"quizbot/internal/service"
	"quizbot/internal/storage"
	"quizbot/internal/wallet"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

const askUsage = "Usage: /ask <text> | <option A> | <option B> | <YYYY-MM-DD HH:MM>"

func (b *Bot) handleAsk(c telebot.Context) error {
	parts := strings.Split(c.Message().Payload, "|")
	if len(parts) != 4 {
		return c.Send(askUsage)
	}

	deadline, err := parseDeadline(parts[3])
	if err != nil {
		return c.Send("Invalid deadline. " + askUsage)
	}

	question, err := b.questions.Open(context.Background(),
		strings.TrimSpace(parts[0]),
		strings.TrimSpace(parts[1]),
		strings.TrimSpace(parts[2]),
		deadline)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return c.Send("Text and both options are required. " + askUsage)
		}
		b.log.Error(c.Sender().ID, "ask_failed", err)
		return c.Send("Failed to open the question. Please try again.")
	}

	b.log.Info(c.Sender().ID, "question_asked", zap.Int64("question_id", question.ID))
	return b.sendQuestion(c, question)
}

func (b *Bot) handleClose(c telebot.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /close <question_id>")
	}
	questionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("Invalid question id.")
	}

	err = b.questions.ForceClose(context.Background(), questionID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.Send(fmt.Sprintf("Question #%d not found.", questionID))
	case errors.Is(err, service.ErrQuestionClosed):
		return c.Send(fmt.Sprintf("Question #%d is already closed.", questionID))
	case err != nil:
		b.log.Error(c.Sender().ID, "close_failed", err, zap.Int64("question_id", questionID))
		return c.Send("Failed to close the question. Please try again.")
	}
	return c.Send(fmt.Sprintf("🔒 Question #%d is now closed for betting.", questionID))
}

func (b *Bot) handleAnswer(c telebot.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /answer <question_id> <A|B>")
	}
	questionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("Invalid question id.")
	}
	correct := storage.Option(strings.ToUpper(args[1]))

	ctx := context.Background()
	result, err := b.settlement.Settle(ctx, questionID, correct)
	if errors.Is(err, service.ErrQuestionStillOpen) {
		// Announcing the answer implies the question is done; close and retry.
		if cerr := b.questions.ForceClose(ctx, questionID); cerr != nil && !errors.Is(cerr, service.ErrQuestionClosed) {
			b.log.Error(c.Sender().ID, "answer_close_failed", cerr, zap.Int64("question_id", questionID))
			return c.Send("Failed to close the question before settling. Please try again.")
		}
		result, err = b.settlement.Settle(ctx, questionID, correct)
	}
	switch {
	case errors.Is(err, service.ErrInvalidOption):
		return c.Send("The correct option must be A or B.")
	case errors.Is(err, storage.ErrNotFound):
		return c.Send(fmt.Sprintf("Question #%d not found.", questionID))
	case errors.Is(err, service.ErrAlreadySettled):
		return c.Send(fmt.Sprintf("Question #%d has already been settled.", questionID))
	case err != nil:
		b.log.Error(c.Sender().ID, "answer_failed", err, zap.Int64("question_id", questionID))
		return c.Send("Failed to settle the question. Please try again.")
	}

	b.notifyWinners(ctx, result)

	return c.Send(fmt.Sprintf("🏁 Question #%d settled: correct option is %s.\n\nWinners: %d\nLosers: %d\nDistributed: %s",
		questionID, correct, len(result.Winners), len(result.Losers), formatAmount(result.TotalDistributed)))
}

// notifyWinners sends each winner their payout, best effort. A failed
// delivery never affects the already-committed settlement.
func (b *Bot) notifyWinners(ctx context.Context, result *service.SettlementResult) {
	for _, win := range result.Winners {
		user, err := b.store.GetUser(ctx, win.UserID)
		if err != nil {
			b.log.Error(win.UserID, "notify_lookup_failed", err)
			continue
		}
		msg := fmt.Sprintf("🏆 You won on question #%d!\n\nYour stake: %s\nPayout: %s\nNew balance: %s",
			result.QuestionID,
			formatAmount(win.Stake),
			formatAmount(win.Amount),
			formatAmount(user.Balance))
		if _, err := b.tb.Send(&telebot.User{ID: win.UserID}, msg); err != nil {
			b.log.Warn(win.UserID, "notify_send_failed", zap.String("error", err.Error()))
		}
	}
}

func (b *Bot) handleAddBalance(c telebot.Context) error {
	return b.adjustBalance(c, "addbalance", func(ctx context.Context, userID, amount int64) (int64, error) {
		return b.wallet.Credit(ctx, userID, amount, "Operator credit")
	})
}

func (b *Bot) handleWithdrawBalance(c telebot.Context) error {
	return b.adjustBalance(c, "withdrawbalance", func(ctx context.Context, userID, amount int64) (int64, error) {
		return b.wallet.Debit(ctx, userID, amount, "Operator debit")
	})
}

func (b *Bot) adjustBalance(c telebot.Context, command string, apply func(ctx context.Context, userID, amount int64) (int64, error)) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send(fmt.Sprintf("Usage: /%s <user_id> <amount>", command))
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("Invalid user id.")
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Send("Invalid amount.")
	}

	balance, err := apply(context.Background(), userID, amount)
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount):
		return c.Send("Amount must be a positive number.")
	case errors.Is(err, storage.ErrNotFound):
		return c.Send(fmt.Sprintf("User %d not found.", userID))
	case errors.Is(err, storage.ErrInsufficientFunds):
		return c.Send(fmt.Sprintf("User %d does not have %s to withdraw.", userID, formatAmount(amount)))
	case err != nil:
		b.log.Error(c.Sender().ID, command+"_failed", err, zap.Int64("target_user_id", userID))
		return c.Send("Failed to update the balance. Please try again.")
	}

	b.log.Info(c.Sender().ID, command,
		zap.Int64("target_user_id", userID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance))
	return c.Send(fmt.Sprintf("Done. User %d now has %s.", userID, formatAmount(balance)))
}
