package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quizbot/internal/service"
	"quizbot/internal/storage"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

// callbackData encodes an option tap as "bet|<option>|<question_id>".
func callbackData(option storage.Option, questionID int64) string {
	return fmt.Sprintf("bet|%s|%d", option, questionID)
}

func parseCallbackData(data string) (storage.Option, int64, bool) {
	data = strings.TrimPrefix(data, "\f")
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != "bet" {
		return "", 0, false
	}
	option := storage.Option(parts[1])
	questionID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return option, questionID, true
}

// handleOptionTap records the tapped option as an expiring selection; the
// user's next message carries the stake.
func (b *Bot) handleOptionTap(c telebot.Context) error {
	option, questionID, ok := parseCallbackData(c.Callback().Data)
	if !ok {
		return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
	}

	ctx := context.Background()
	sender := c.Sender()
	if _, _, err := b.store.EnsureUser(ctx, sender.ID, displayName(sender), b.cfg.Game.WelcomeBonus); err != nil {
		b.log.Error(sender.ID, "tap_ensure_user_failed", err)
		return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong. Please try again."})
	}

	question, err := b.store.GetQuestion(ctx, questionID)
	if err != nil {
		return c.Respond(&telebot.CallbackResponse{Text: "This question no longer exists."})
	}
	if question.Status != storage.QuestionStatusOpen || !time.Now().Before(question.Deadline) {
		return c.Respond(&telebot.CallbackResponse{Text: "This question is closed for betting."})
	}

	sel := b.sessions.Put(sender.ID, questionID, option)
	b.log.Debug(sender.ID, "option_selected",
		zap.Int64("question_id", questionID),
		zap.String("option", string(option)),
		zap.String("session", sel.Token))

	if err := c.Respond(&telebot.CallbackResponse{Text: "Option " + string(option) + " selected."}); err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("You picked *%s* on question #%d.\n\nNow send the amount you want to stake.",
		escapeMarkdown(question.OptionLabel(option)), questionID),
		&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

// handleStake interprets a plain numeric message as the stake for the
// sender's most recent pending selection.
func (b *Bot) handleStake(c telebot.Context) error {
	stake, err := strconv.ParseInt(strings.TrimSpace(c.Text()), 10, 64)
	if err != nil {
		return nil // not a stake amount; ignore
	}

	sender := c.Sender()
	sel, ok := b.sessions.Latest(sender.ID)
	if !ok {
		return c.Send("Pick an option under a question first (/list), then send your stake.")
	}

	ctx := context.Background()
	participant, err := b.betting.PlaceBet(ctx, sender.ID, sel.QuestionID, sel.Option, stake, time.Now())
	switch {
	case errors.Is(err, service.ErrInvalidStake):
		return c.Send("The stake must be a positive amount.")
	case errors.Is(err, storage.ErrInsufficientFunds):
		return c.Send("Insufficient balance for that stake. Check /balance.")
	case errors.Is(err, service.ErrQuestionClosed):
		b.sessions.Delete(sender.ID, sel.QuestionID)
		return c.Send(fmt.Sprintf("Question #%d is closed for betting.", sel.QuestionID))
	case errors.Is(err, storage.ErrNotFound):
		b.sessions.Delete(sender.ID, sel.QuestionID)
		return c.Send("That question no longer exists.")
	case err != nil:
		b.log.Error(sender.ID, "stake_failed", err, zap.Int64("question_id", sel.QuestionID))
		return c.Send("Could not place your bet. Please try again.")
	}

	b.sessions.Delete(sender.ID, sel.QuestionID)

	user, err := b.store.GetUser(ctx, sender.ID)
	if err != nil {
		b.log.Error(sender.ID, "stake_balance_lookup_failed", err)
		return c.Send("Bet placed! Use /balance to see your new balance.")
	}
	return c.Send(fmt.Sprintf("✅ Bet #%d placed: %s on option %s of question #%d.\n\nNew balance: %s",
		participant.ID,
		formatAmount(stake),
		sel.Option,
		sel.QuestionID,
		formatAmount(user.Balance)))
}
