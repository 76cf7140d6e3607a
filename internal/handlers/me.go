package handlers

import (
	"errors"
	"net/http"

	"quizbot/internal/auth"
	"quizbot/internal/storage"

	"go.uber.org/zap"
)

// Me handles GET /api/me: the authenticated user's record, created with the
// welcome credit on first sight.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized: user not in context", http.StatusUnauthorized)
		return
	}

	user, _, err := h.store.EnsureUser(r.Context(), userID, "", h.cfg.Game.WelcomeBonus)
	if err != nil {
		h.log.Error(userID, "me_failed", err)
		respondError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// MyTransactions handles GET /api/me/transactions: the user's ledger
// entries, newest first.
func (h *Handlers) MyTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized: user not in context", http.StatusUnauthorized)
		return
	}

	entries, err := h.store.ListTransactions(r.Context(), userID)
	if err != nil {
		h.log.Error(userID, "transactions_failed", err)
		respondError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []storage.Transaction{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// MyBets handles GET /api/me/bets: the user's bets joined with their
// questions, newest first.
func (h *Handlers) MyBets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized: user not in context", http.StatusUnauthorized)
		return
	}

	bets, err := h.store.ListUserBets(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, "User not found", http.StatusNotFound)
			return
		}
		h.log.Error(userID, "bets_failed", err)
		respondError(w, "Failed to list bets", http.StatusInternalServerError)
		return
	}
	if bets == nil {
		bets = []storage.BetHistoryItem{}
	}
	h.log.Debug(userID, "bets_listed", zap.Int("count", len(bets)))
	respondJSON(w, http.StatusOK, bets)
}
