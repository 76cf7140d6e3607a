package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"quizbot/internal/logger"

	"go.uber.org/zap"
)

// ContextKey is the key type for context values
type ContextKey string

// UserIDKey is the context key for the authenticated user id
const UserIDKey ContextKey = "user_id"

// maxInitDataAge rejects replayed initData older than this.
const maxInitDataAge = 24 * time.Hour

// Validator checks Telegram WebApp initData signatures against the bot
// token.
type Validator struct {
	token string
	log   *logger.Logger
}

// NewValidator creates a validator for the given bot token.
func NewValidator(token string, log *logger.Logger) *Validator {
	return &Validator{token: token, log: log}
}

// ValidateInitData verifies the HMAC-SHA256 signature and freshness of the
// initData string and returns the Telegram user id it carries.
func (v *Validator) ValidateInitData(initData string) (int64, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, fmt.Errorf("malformed initData: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return 0, fmt.Errorf("hash not found in initData")
	}

	// Data-check string: every field except hash, sorted by key.
	keys := make([]string, 0, len(values))
	for key := range values {
		if key != "hash" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	dataCheckString := strings.Join(pairs, "\n")

	mac := hmac.New(sha256.New, []byte(v.token))
	mac.Write([]byte(dataCheckString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(hash), []byte(computed)) {
		return 0, fmt.Errorf("invalid hash")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid auth_date")
	}
	if time.Now().Unix()-authDate > int64(maxInitDataAge.Seconds()) {
		return 0, fmt.Errorf("auth_date is too old")
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return 0, fmt.Errorf("failed to parse user: %w", err)
	}
	if user.ID == 0 {
		return 0, fmt.Errorf("user id not found")
	}
	return user.ID, nil
}

// Middleware validates the X-Telegram-Init-Data header on /api/ routes and
// stores the authenticated user id in the request context. /api/ping stays
// open for health checks.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" || r.URL.Path == "/api/ping" {
			next.ServeHTTP(w, r)
			return
		}

		initData := r.Header.Get("X-Telegram-Init-Data")
		if initData == "" {
			http.Error(w, "Unauthorized: missing X-Telegram-Init-Data header", http.StatusUnauthorized)
			return
		}

		userID, err := v.ValidateInitData(initData)
		if err != nil {
			v.log.Warn(0, "auth_failed", zap.String("error", err.Error()))
			http.Error(w, "Unauthorized: invalid initData", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
	})
}

// ContextWithUserID adds the user id to the context.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
