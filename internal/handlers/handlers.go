package handlers

import (
	"encoding/json"
	"net/http"

	"quizbot/internal/config"
	"quizbot/internal/logger"
	"quizbot/internal/service"
	"quizbot/internal/storage"
)

// Handlers serves the mini-app API over the ledger core.
type Handlers struct {
	store     *storage.Store
	betting   *service.BettingService
	questions *service.QuestionService
	cfg       *config.Config
	log       *logger.Logger
}

// New creates the API handler set.
func New(store *storage.Store, betting *service.BettingService, questions *service.QuestionService, cfg *config.Config, log *logger.Logger) *Handlers {
	return &Handlers{store: store, betting: betting, questions: questions, cfg: cfg, log: log}
}

// Ping handles GET /api/ping
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}
