package cabinet

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// sensitiveFields are masked whenever a field name contains one of them.
var sensitiveFields = []string{"password", "token", "authorization", "secret"}

// ZerologLogger is a Logger backed by zerolog that masks credentials.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger writes JSON lines to w. Level is a zerolog level name
// ("debug", "info", ...); unknown names fall back to info. A nil writer
// means stderr.
func NewZerologLogger(w io.Writer, level string) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zLevel = zerolog.InfoLevel
	}

	l := zerolog.New(w).With().Timestamp().Logger().Level(zLevel)

	return &ZerologLogger{logger: l}
}

// NewConsoleLogger is NewZerologLogger with human-readable output.
func NewConsoleLogger(w io.Writer, level string) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}

	return NewZerologLogger(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}, level)
}

// Debug logs at debug level.
func (l *ZerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(MaskFields(fields)).Msg(msg)
}

// Info logs at info level.
func (l *ZerologLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(MaskFields(fields)).Msg(msg)
}

// Warn logs at warn level.
func (l *ZerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(MaskFields(fields)).Msg(msg)
}

// Error logs at error level.
func (l *ZerologLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(MaskFields(fields)).Msg(msg)
}

// MaskFields returns a copy of fields with credential-bearing values
// replaced. Nested maps are masked too.
func MaskFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))

	for key, value := range fields {
		switch {
		case IsSensitiveField(key):
			masked[key] = constants.MaskedSecret
		case isStringMap(value):
			masked[key] = MaskFields(value.(map[string]interface{})) //nolint:forcetypeassert // checked above
		default:
			masked[key] = value
		}
	}

	return masked
}

// IsSensitiveField reports whether a field name looks like it carries a
// credential.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}

	return false
}

func isStringMap(v interface{}) bool {
	_, ok := v.(map[string]interface{})

	return ok
}
