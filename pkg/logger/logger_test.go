package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name          string
		opts          Options
		envLevel      string
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{
			name:          "production defaults",
			opts:          Options{},
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
		{
			name:          "development defaults to debug text",
			opts:          Options{Development: true},
			expectedLevel: logrus.DebugLevel,
			expectJSON:    false,
		},
		{
			name:          "explicit level and json in development",
			opts:          Options{Level: "WARN", Development: true, Format: "JSON"},
			expectedLevel: logrus.WarnLevel,
			expectJSON:    true,
		},
		{
			name:          "level from environment",
			opts:          Options{Format: "text"},
			envLevel:      "error",
			expectedLevel: logrus.ErrorLevel,
			expectJSON:    false,
		},
		{
			name:          "invalid level defaults to info",
			opts:          Options{Level: "loud"},
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.envLevel)
			t.Setenv("LOG_FORMAT", "")

			var buf bytes.Buffer
			tt.opts.Output = &buf
			log := InitLogger(tt.opts)

			assert.Equal(t, tt.expectedLevel, log.GetLevel())
			assert.Same(t, log, GetLogger())

			buf.Reset()
			log.Error("format check")
			var decoded map[string]interface{}
			isJSON := json.Unmarshal(buf.Bytes(), &decoded) == nil
			assert.Equal(t, tt.expectJSON, isJSON)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(Options{Level: "info", Format: "json", Output: &buf})

	WithOptimizationContext("opt-1", "mlb", "fanduel").Info("solved")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "opt-1", entry["optimization_id"])
	assert.Equal(t, "mlb", entry["sport"])
	assert.Equal(t, "fanduel", entry["platform"])
	assert.Equal(t, "solved", entry["msg"])

	buf.Reset()
	WithService("lineup-service").Warn("up")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lineup-service", entry["service"])

	buf.Reset()
	WithHTTPContext("POST", "/api/v1/optimize", "curl").Info("request")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "POST", entry["http_method"])
}
