package session

import (
	"time"

	"quizbot/internal/storage"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Key identifies a pending selection: one per user per question.
type Key struct {
	UserID     int64
	QuestionID int64
}

// Selection is an option a user has tapped but not yet staked on. It expires
// on its own, so abandoned flows do not accumulate.
type Selection struct {
	Token      string
	UserID     int64
	QuestionID int64
	Option     storage.Option
	CreatedAt  time.Time
}

// Store holds pending selections with a TTL. It replaces any ambient
// "current selection" state: callers pass the selection into bet placement
// explicitly.
type Store struct {
	cache *expirable.LRU[Key, Selection]
}

// NewStore creates a session store holding at most size selections, each
// expiring after ttl.
func NewStore(size int, ttl time.Duration) *Store {
	return &Store{cache: expirable.NewLRU[Key, Selection](size, nil, ttl)}
}

// Put records a selection, replacing any previous one for the same user and
// question, and returns it.
func (s *Store) Put(userID, questionID int64, option storage.Option) Selection {
	sel := Selection{
		Token:      uuid.NewString(),
		UserID:     userID,
		QuestionID: questionID,
		Option:     option,
		CreatedAt:  time.Now(),
	}
	s.cache.Add(Key{UserID: userID, QuestionID: questionID}, sel)
	return sel
}

// Get returns the pending selection for (user, question), if one exists and
// has not expired.
func (s *Store) Get(userID, questionID int64) (Selection, bool) {
	return s.cache.Get(Key{UserID: userID, QuestionID: questionID})
}

// Latest returns the user's most recent pending selection across all
// questions. The bot uses it to interpret a bare stake amount.
func (s *Store) Latest(userID int64) (Selection, bool) {
	var latest Selection
	found := false
	for _, key := range s.cache.Keys() {
		if key.UserID != userID {
			continue
		}
		sel, ok := s.cache.Get(key)
		if !ok {
			continue
		}
		if !found || sel.CreatedAt.After(latest.CreatedAt) {
			latest = sel
			found = true
		}
	}
	return latest, found
}

// Delete removes the selection for (user, question).
func (s *Store) Delete(userID, questionID int64) {
	s.cache.Remove(Key{UserID: userID, QuestionID: questionID})
}

// Len reports how many selections are pending.
func (s *Store) Len() int {
	return s.cache.Len()
}
