package service

import (
	"context"
	"time"

	"quizbot/internal/logger"
	"quizbot/internal/storage"

	"go.uber.org/zap"
)

// QuestionWorker closes expired questions in the background so bets stop
// being accepted as soon as possible after the deadline. Settlement stays an
// operator action: the worker never announces an answer.
type QuestionWorker struct {
	ctx       context.Context
	cancel    context.CancelFunc
	ticker    *time.Ticker
	store     *storage.Store
	questions *QuestionService
	log       *logger.Logger
}

// NewQuestionWorker creates a worker that sweeps at the given interval.
func NewQuestionWorker(store *storage.Store, questions *QuestionService, interval time.Duration, log *logger.Logger) *QuestionWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &QuestionWorker{
		ctx:       ctx,
		cancel:    cancel,
		ticker:    time.NewTicker(interval),
		store:     store,
		questions: questions,
		log:       log,
	}
}

// Start begins the background sweep. The first pass runs immediately.
func (w *QuestionWorker) Start() {
	w.log.Info(0, "question_worker_started")
	w.closeExpired()

	go func() {
		for {
			select {
			case <-w.ticker.C:
				w.closeExpired()
			case <-w.ctx.Done():
				w.log.Info(0, "question_worker_stopped")
				return
			}
		}
	}()
}

// Stop stops the background sweep.
func (w *QuestionWorker) Stop() {
	w.ticker.Stop()
	w.cancel()
}

func (w *QuestionWorker) closeExpired() {
	now := time.Now()
	expired, err := w.store.ListExpiredOpen(w.ctx, now)
	if err != nil {
		w.log.Error(0, "question_worker_query_failed", err)
		return
	}

	closed := 0
	for _, q := range expired {
		ok, err := w.questions.CloseIfExpired(w.ctx, q.ID, now)
		if err != nil {
			w.log.Error(0, "question_worker_close_failed", err, zap.Int64("question_id", q.ID))
			continue
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		w.log.Info(0, "question_worker_closed", zap.Int("count", closed))
	}
}
