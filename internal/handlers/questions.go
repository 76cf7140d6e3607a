package handlers

import (
	"net/http"

	"quizbot/internal/storage"
)

// Questions handles GET /api/questions: all questions still open for
// betting.
func (h *Handlers) Questions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	questions, err := h.store.ListOpenQuestions(r.Context())
	if err != nil {
		h.log.Error(0, "questions_failed", err)
		respondError(w, "Failed to list questions", http.StatusInternalServerError)
		return
	}
	if questions == nil {
		questions = []storage.Question{}
	}
	respondJSON(w, http.StatusOK, questions)
}
