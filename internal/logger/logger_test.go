package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log := New()
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	assert.Contains(t, buf.String(), "test message")
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zerolog.Level
		wantJSON  bool
	}{
		{"json debug", "debug", FormatJSON, zerolog.DebugLevel, true},
		{"console warn", "WARN", FormatConsole, zerolog.WarnLevel, false},
		{"unknown level falls back to info", "loud", FormatJSON, zerolog.InfoLevel, true},
		{"empty level falls back to info", "", "", zerolog.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := NewFromConfig(tt.level, tt.format, buf)
			assert.Equal(t, tt.wantLevel, log.GetLevel())

			log.Error().Msg("hello")
			var decoded map[string]interface{}
			err := json.Unmarshal(buf.Bytes(), &decoded)
			if tt.wantJSON {
				require.NoError(t, err)
				assert.Equal(t, "hello", decoded["message"])
			} else {
				assert.Error(t, err)
				assert.Contains(t, buf.String(), "hello")
			}
		})
	}
}

func TestNewFromConfig_FiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewFromConfig("warn", FormatJSON, buf)

	log.Info().Msg("quiet")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestWithContext(t *testing.T) {
	ctx := WithContext(context.Background(), New())
	assert.NotNil(t, ctx.Value(LoggerKey))
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	l := FromContext(ctx)
	l.Info().Msg("test")

	assert.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"run_id": "123",
		"action": "import",
	})

	log.Info().Msg("test message")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"123"`)
	assert.Contains(t, out, `"action":"import"`)
}

func TestForUser(t *testing.T) {
	buf := &bytes.Buffer{}
	l := ForUser(NewWithWriter(buf), "u-42")
	l.Info().Msg("hi")
	assert.Contains(t, buf.String(), `"user_id":"u-42"`)
}
