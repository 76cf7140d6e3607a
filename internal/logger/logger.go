package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with the user_id/action shape used throughout the bot and
// handlers.
type Logger struct {
	z *zap.Logger
}

// New builds a production logger at the given level ("debug", "info", "warn",
// "error").
func New(level string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Nop returns a logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) with(userID int64, fields []zap.Field) []zap.Field {
	return append([]zap.Field{zap.Int64("user_id", userID)}, fields...)
}

// Debug logs an action at debug level, tagged with the acting user.
func (l *Logger) Debug(userID int64, action string, fields ...zap.Field) {
	l.z.Debug(action, l.with(userID, fields)...)
}

// Info logs an action at info level, tagged with the acting user.
func (l *Logger) Info(userID int64, action string, fields ...zap.Field) {
	l.z.Info(action, l.with(userID, fields)...)
}

// Warn logs an action at warn level, tagged with the acting user.
func (l *Logger) Warn(userID int64, action string, fields ...zap.Field) {
	l.z.Warn(action, l.with(userID, fields)...)
}

// Error logs a failed action with its error, tagged with the acting user.
func (l *Logger) Error(userID int64, action string, err error, fields ...zap.Field) {
	l.z.Error(action, append(l.with(userID, fields), zap.Error(err))...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}
