package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quizbot/internal/storage"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

func (b *Bot) handleStart(c telebot.Context) error {
	ctx := context.Background()
	sender := c.Sender()

	user, created, err := b.store.EnsureUser(ctx, sender.ID, displayName(sender), b.cfg.Game.WelcomeBonus)
	if err != nil {
		b.log.Error(sender.ID, "start_failed", err)
		return c.Send("Error retrieving user data. Please try again.")
	}
	if created {
		b.log.Info(sender.ID, "user_created", zap.Int64("welcome_bonus", b.cfg.Game.WelcomeBonus))
	}

	msg := fmt.Sprintf("Welcome to the prediction game! 🎉\n\nHi, %s! You have %s.\n\nUse /list to see open questions and tap an option to place a stake. /help shows everything else.",
		user.Name, formatAmount(user.Balance))
	return c.Send(msg)
}

func (b *Bot) handleHelp(c telebot.Context) error {
	help := "📚 *Available Commands*\n\n" +
		"/start - Create your wallet and receive the welcome bonus\n" +
		"/balance - Check your current balance\n" +
		"/transactions - Your ledger history\n" +
		"/history - Your bets and their outcomes\n" +
		"/list - Open questions you can bet on\n" +
		"/help - Show this help message\n\n" +
		"Tap an option under a question, then send the stake amount as a number."
	if b.cfg.IsAdmin(c.Sender().ID) {
		help += "\n\n🛠 *Operator Commands*\n\n" +
			"/ask <text> | <option A> | <option B> | <YYYY-MM-DD HH:MM>\n" +
			"/close <question_id>\n" +
			"/answer <question_id> <A|B>\n" +
			"/addbalance <user_id> <amount>\n" +
			"/withdrawbalance <user_id> <amount>"
	}
	return c.Send(help, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleBalance(c telebot.Context) error {
	user, err := b.requireUser(c)
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("💰 Your current balance is %s.", formatAmount(user.Balance)))
}

func (b *Bot) handleTransactions(c telebot.Context) error {
	user, err := b.requireUser(c)
	if err != nil {
		return err
	}

	entries, err := b.store.ListTransactions(context.Background(), user.ID)
	if err != nil {
		b.log.Error(user.ID, "transactions_failed", err)
		return c.Send("Error retrieving your transactions. Please try again.")
	}
	if len(entries) == 0 {
		return c.Send("No transactions found.")
	}

	return c.Send("📒 *Your Transactions*\n\n```\n"+transactionsTable(entries)+"```",
		&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleHistory(c telebot.Context) error {
	user, err := b.requireUser(c)
	if err != nil {
		return err
	}

	bets, err := b.store.ListUserBets(context.Background(), user.ID)
	if err != nil {
		b.log.Error(user.ID, "history_failed", err)
		return c.Send("Error retrieving your bets. Please try again.")
	}
	if len(bets) == 0 {
		return c.Send("No bets placed yet. Use /list to find an open question!")
	}

	text := fmt.Sprintf("🎲 *Your Bets* (%d)\n", len(bets))
	max := 10
	if len(bets) < max {
		max = len(bets)
	}
	for i := 0; i < max; i++ {
		bet := bets[i]
		var statusEmoji string
		switch bet.Status {
		case storage.BetStatusPending:
			statusEmoji = "⏳"
		case storage.BetStatusWon:
			statusEmoji = "✅"
		case storage.BetStatusLost:
			statusEmoji = "❌"
		}
		text += fmt.Sprintf("\n*%d.* %s %s\n   📝 %s\n   🎯 %s | %s\n",
			i+1,
			statusEmoji,
			bet.Status,
			escapeMarkdown(truncate(bet.QuestionText, 40)),
			escapeMarkdown(bet.OptionLabel),
			formatAmount(bet.Stake))
	}
	if len(bets) > max {
		text += fmt.Sprintf("\n...and %d more bets", len(bets)-max)
	}
	return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleList(c telebot.Context) error {
	questions, err := b.store.ListOpenQuestions(context.Background())
	if err != nil {
		b.log.Error(c.Sender().ID, "list_failed", err)
		return c.Send("Error retrieving questions. Please try again.")
	}
	if len(questions) == 0 {
		return c.Send("📊 No open questions at the moment. Check back later!")
	}

	for _, q := range questions {
		if err := b.sendQuestion(c, &q); err != nil {
			return err
		}
	}
	return nil
}

// sendQuestion renders a question with its A/B inline keyboard.
func (b *Bot) sendQuestion(c telebot.Context, q *storage.Question) error {
	text := fmt.Sprintf("❓ *Question #%d*\n\n%s\n\n⏰ Closes: %s",
		q.ID,
		escapeMarkdown(q.Text),
		q.Deadline.Local().Format("2006-01-02 15:04"))
	markup := &telebot.ReplyMarkup{
		InlineKeyboard: [][]telebot.InlineButton{{
			{Text: q.OptionA, Data: callbackData(storage.OptionA, q.ID)},
			{Text: q.OptionB, Data: callbackData(storage.OptionB, q.ID)},
		}},
	}
	return c.Send(text, markup, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

// requireUser loads the sender's wallet, prompting /start if they have none.
func (b *Bot) requireUser(c telebot.Context) (*storage.User, error) {
	user, err := b.store.GetUser(context.Background(), c.Sender().ID)
	if err != nil {
		b.log.Debug(c.Sender().ID, "user_not_found")
		return nil, c.Send("You haven't started the bot yet. Use /start to create your account!")
	}
	return user, nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func parseDeadline(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(s), time.Local)
}
