package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"quizbot/internal/auth"
	"quizbot/internal/service"
	"quizbot/internal/storage"
	"quizbot/internal/wallet"
)

// PlaceBetRequest is the request body for placing a bet
type PlaceBetRequest struct {
	QuestionID int64  `json:"question_id"`
	Option     string `json:"option"`
	Stake      int64  `json:"stake"`
}

// PlaceBetResponse is the response after placing a bet
type PlaceBetResponse struct {
	ParticipantID int64 `json:"participant_id"`
	NewBalance    int64 `json:"new_balance"`
}

// PlaceBet handles POST /api/bets
func (h *Handlers) PlaceBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized: user not in context", http.StatusUnauthorized)
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	participant, err := h.betting.PlaceBet(r.Context(), userID, req.QuestionID, storage.Option(req.Option), req.Stake, time.Now())
	if err != nil {
		respondError(w, err.Error(), betErrorStatus(err))
		return
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, "Failed to get user balance", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, PlaceBetResponse{
		ParticipantID: participant.ID,
		NewBalance:    user.Balance,
	})
}

// betErrorStatus maps the typed bet rejections onto HTTP statuses. Storage
// faults stay 500s so clients can tell a rejected bet from a failed one.
func betErrorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrQuestionClosed):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidOption),
		errors.Is(err, service.ErrInvalidStake),
		errors.Is(err, wallet.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
