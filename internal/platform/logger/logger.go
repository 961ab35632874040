package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a sugared zap logger whose key/value pairs pass through a
// redactor before they are encoded.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	red           *redactor
}

// New builds a logger for the given mode: "prod"/"production" emits JSON,
// "test"/"nop" discards everything, anything else is the development console
// encoder. LOG_LEVEL overrides the default debug level; LOG_REDACTION_ENABLED
// and LOG_HASH_SALT control redaction.
func New(mode string) (*Logger, error) {
	red := redactorFromEnv()
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "test", "nop":
		return &Logger{SugaredLogger: zap.NewNop().Sugar(), red: red}, nil
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zapcore.DebugLevel))
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar(), red: red}, nil
}

func levelFromEnv(def zapcore.Level) zapcore.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return def
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		return def
	}
	return lvl
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, l.red.kvs(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.SugaredLogger.Infow(msg, l.red.kvs(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.SugaredLogger.Warnw(msg, l.red.kvs(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, l.red.kvs(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, l.red.kvs(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.red.kvs(kv)...), red: l.red}
}

const redacted = "[REDACTED]"

// Chat transcripts and piece summaries are user-authored product plans and
// never belong in logs.
var redactFragments = []string{
	"token", "authorization", "password", "secret", "cookie",
	"api_key", "apikey", "email", "summary", "content", "prompt",
}

// redactor blanks sensitive values and replaces user and session ids with a
// salted hash. A nil redactor passes everything through.
type redactor struct {
	salt string
}

func redactorFromEnv() *redactor {
	switch strings.TrimSpace(strings.ToLower(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		return nil
	}
	return &redactor{salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
}

func (r *redactor) kvs(kv []interface{}) []interface{} {
	if r == nil || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		out = append(out, key, r.value(normalizeKey(key), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
	case isRedactKey(key):
		return redacted
	case strings.Contains(key, "user_id"), strings.Contains(key, "session_id"):
		return r.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = r.value(normalizeKey(k), inner)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return redacted
		}
	}
	return val
}

func (r *redactor) hash(val interface{}) string {
	raw := strings.TrimSpace(fmt.Sprint(val))
	if val == nil || raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func isRedactKey(key string) bool {
	for _, frag := range redactFragments {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}
