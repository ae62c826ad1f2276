package logger

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevelAndFormat(t *testing.T) {
	log, err := NewLogger(&config.LoggingConfig{Level: "DEBUG", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(&config.LoggingConfig{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	log, err := NewLogger(&config.LoggingConfig{
		Level:  "info",
		Output: "file",
		File:   config.FileConfig{Path: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1},
	})
	require.NoError(t, err)

	log.Info("hello")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewLoggerFileOutputNeedsPath(t *testing.T) {
	_, err := NewLogger(&config.LoggingConfig{Level: "info", Output: "file"})
	assert.Error(t, err)
}

func TestWithRequest(t *testing.T) {
	log, hook := test.NewNullLogger()
	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.Header.Set("Origin", "https://portfolio.example")

	WithUser(WithRequest(log, req), "u1").Info("handled")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "POST", entry.Data["method"])
	assert.Equal(t, "/api/chat", entry.Data["path"])
	assert.Equal(t, "https://portfolio.example", entry.Data["origin"])
	assert.Equal(t, "u1", entry.Data["user_id"])
}
