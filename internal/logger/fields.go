package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldAPIURL is the structured log field key for the comparison API base URL.
	FieldAPIURL = "api_url"
	// FieldVersion is the structured log field key for the application version.
	FieldVersion = "version"
	// FieldMode is the structured log field key for the job description input mode.
	FieldMode = "jd_mode"
)

// StringField is a string log field that is dropped when blank.
type StringField struct {
	Key   string
	Value string
}

// StringFields keeps the pairs whose key and value are both non-blank, trimmed.
func StringFields(pairs ...StringField) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs))
	for _, p := range pairs {
		key, value := strings.TrimSpace(p.Key), strings.TrimSpace(p.Value)
		if key != "" && value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	return fields
}

// WithFields is logger.With that tolerates a nil logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	switch {
	case logger == nil:
		return zap.NewNop()
	case len(fields) == 0:
		return logger
	default:
		return logger.With(fields...)
	}
}

// ClientFields describes which comparison API and build a log line came from.
// Empty values are skipped.
func ClientFields(apiURL, version string) []zap.Field {
	return StringFields(
		StringField{Key: FieldAPIURL, Value: apiURL},
		StringField{Key: FieldVersion, Value: version},
	)
}

// WithClientFields attaches ClientFields to the provided logger.
func WithClientFields(logger *zap.Logger, apiURL, version string) *zap.Logger {
	return WithFields(logger, ClientFields(apiURL, version)...)
}
