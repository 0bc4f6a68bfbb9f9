package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		level   zapcore.Level
		wantErr bool
	}{
		{"nil config uses defaults", nil, zapcore.InfoLevel, false},
		{"debug console", &Config{Level: "debug", Format: "console", Output: "stdout"}, zapcore.DebugLevel, false},
		{"upper case level", &Config{Level: "WARN", Format: "json", Output: "stderr"}, zapcore.WarnLevel, false},
		{"empty level", &Config{Format: "json"}, zapcore.InfoLevel, false},
		{"unknown level", &Config{Level: "loud", Format: "json"}, zapcore.InfoLevel, true},
		{"unknown format", &Config{Level: "info", Format: "xml"}, zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.level-1))
			}
		})
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	logger, err := NewLogger(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file", zap.Int("generation", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Contains(t, string(data), `"generation":3`)
}

func TestContextLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	ctx := WithContext(context.Background(), logger)

	FromContext(ctx).Info("hello")
	assert.Equal(t, 1, logs.FilterMessage("hello").Len())
}

func TestMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	handler := Middleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/abc", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	inside := logs.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "/api/v1/runs/abc", inside[0].ContextMap()["path"])

	completed := logs.FilterMessage("Request completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, http.StatusText(http.StatusTeapot), fields["error"])
	assert.Equal(t, http.MethodGet, fields["method"])
}
