package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "mock", cfg.Embeddings.Provider)
	assert.Equal(t, 128, cfg.Embeddings.Dimension)
	assert.Equal(t, 30*time.Second, cfg.Generator.Timeout)
	assert.InDelta(t, 2.0, cfg.Generator.RateLimit, 0.001)
	assert.Equal(t, 5, cfg.Session.TotalSteps)
	assert.Equal(t, 50, cfg.Session.MaxHistoryPerUser)
	assert.Equal(t, "tutord", cfg.Analytics.SubjectPrefix)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9191
logging:
  level: debug
  format: console
session:
  total_steps: 7
embeddings:
  provider: tei
  base_url: http://localhost:8080
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 7, cfg.Session.TotalSteps)
	assert.Equal(t, "tei", cfg.Embeddings.Provider)
	assert.Equal(t, "http://localhost:8080", cfg.Embeddings.BaseURL)
	// Untouched sections still get defaults.
	assert.Equal(t, 50, cfg.Session.MaxHistoryPerUser)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	t.Setenv("SERVER_PORT", "9292")
	t.Setenv("SESSION_TOTAL_STEPS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9292, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Session.TotalSteps)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "port out of range",
			env:  map[string]string{"SERVER_PORT": "99999"},
		},
		{
			name: "bad logging format",
			env:  map[string]string{"LOGGING_FORMAT": "xml"},
		},
		{
			name: "unknown embeddings provider",
			env:  map[string]string{"EMBEDDINGS_PROVIDER": "imaginary"},
		},
		{
			name: "tei without base url",
			env:  map[string]string{"EMBEDDINGS_PROVIDER": "tei"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	big := make([]byte, maxConfigFileSize+1)
	require.NoError(t, os.WriteFile(path, big, 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
