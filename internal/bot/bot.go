package bot

import (
	"fmt"
	"sync"
	"time"

	"quizbot/internal/config"
	"quizbot/internal/logger"
	"quizbot/internal/service"
	"quizbot/internal/session"
	"quizbot/internal/storage"
	"quizbot/internal/wallet"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Bot is the Telegram command surface over the ledger core. It parses user
// input into primitives and renders results; every invariant lives below it.
type Bot struct {
	tb         *telebot.Bot
	store      *storage.Store
	wallet     *wallet.Service
	questions  *service.QuestionService
	betting    *service.BettingService
	settlement *service.SettlementService
	sessions   *session.Store
	cfg        *config.Config
	log        *logger.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// New creates the bot and registers its handlers.
func New(
	cfg *config.Config,
	store *storage.Store,
	w *wallet.Service,
	questions *service.QuestionService,
	betting *service.BettingService,
	settlement *service.SettlementService,
	sessions *session.Store,
	log *logger.Logger,
) (*Bot, error) {
	tb, err := telebot.NewBot(telebot.Settings{
		Token: cfg.BotToken,
		Poller: &telebot.LongPoller{
			Timeout: 10 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		tb:         tb,
		store:      store,
		wallet:     w,
		questions:  questions,
		betting:    betting,
		settlement: settlement,
		sessions:   sessions,
		cfg:        cfg,
		log:        log,
		limiters:   make(map[int64]*rate.Limiter),
	}

	tb.Handle("/start", b.limited(b.handleStart))
	tb.Handle("/help", b.limited(b.handleHelp))
	tb.Handle("/balance", b.limited(b.handleBalance))
	tb.Handle("/transactions", b.limited(b.handleTransactions))
	tb.Handle("/history", b.limited(b.handleHistory))
	tb.Handle("/list", b.limited(b.handleList))

	tb.Handle("/ask", b.admin(b.handleAsk))
	tb.Handle("/close", b.admin(b.handleClose))
	tb.Handle("/answer", b.admin(b.handleAnswer))
	tb.Handle("/addbalance", b.admin(b.handleAddBalance))
	tb.Handle("/withdrawbalance", b.admin(b.handleWithdrawBalance))

	tb.Handle(telebot.OnCallback, b.limited(b.handleOptionTap))
	tb.Handle(telebot.OnText, b.limited(b.handleStake))

	return b, nil
}

// Start begins long polling. It blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info(0, "bot_started")
	b.tb.Start()
}

// Stop stops long polling.
func (b *Bot) Stop() {
	b.tb.Stop()
}

// limiter returns the per-user rate limiter, creating it on first use.
func (b *Bot) limiter(userID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(500*time.Millisecond), 5)
		b.limiters[userID] = l
	}
	return l
}

// limited drops updates from users sending faster than the per-user limit.
func (b *Bot) limited(fn telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if !b.limiter(c.Sender().ID).Allow() {
			return nil
		}
		return fn(c)
	}
}

// admin restricts a handler to configured operator ids. The check lives
// here, at the transport edge; the core only ever sees primitives.
func (b *Bot) admin(fn telebot.HandlerFunc) telebot.HandlerFunc {
	return b.limited(func(c telebot.Context) error {
		if !b.cfg.IsAdmin(c.Sender().ID) {
			b.log.Warn(c.Sender().ID, "admin_command_denied")
			return c.Send("This command is for operators only.")
		}
		return fn(c)
	})
}

// displayName builds a name from the Telegram sender info.
func displayName(sender *telebot.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}
