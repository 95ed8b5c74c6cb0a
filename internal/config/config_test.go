package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"TASKVIEW_API_URL", "TASKVIEW_TOKEN", "TASKVIEW_PER_PAGE",
	"TASKVIEW_DEBOUNCE", "TASKVIEW_LOG_LEVEL", "TASKVIEW_ADDR",
}

// setupEnv unsets every variable, then applies vars. godotenv treats a
// variable set to "" as present, so blanking is not enough.
func setupEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	setupEnv(t, nil)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, Config{
		APIURL:   "http://localhost:3000",
		PerPage:  10,
		Debounce: 500 * time.Millisecond,
		LogLevel: "info",
		Addr:     ":3000",
	}, cfg)
}

func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, map[string]string{
		"TASKVIEW_API_URL":   "https://tasks.example.com/api",
		"TASKVIEW_TOKEN":     "jwt-token",
		"TASKVIEW_PER_PAGE":  "25",
		"TASKVIEW_DEBOUNCE":  "250ms",
		"TASKVIEW_LOG_LEVEL": "debug",
	})

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com/api", cfg.APIURL)
	assert.Equal(t, "jwt-token", cfg.Token)
	assert.Equal(t, 25, cfg.PerPage)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	setupEnv(t, map[string]string{"TASKVIEW_LOG_LEVEL": "warn"})

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TASKVIEW_PER_PAGE=50\nTASKVIEW_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PerPage)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over .env")
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"per page not a number", map[string]string{"TASKVIEW_PER_PAGE": "ten"}},
		{"per page too large", map[string]string{"TASKVIEW_PER_PAGE": "101"}},
		{"bad debounce", map[string]string{"TASKVIEW_DEBOUNCE": "soon"}},
		{"negative debounce", map[string]string{"TASKVIEW_DEBOUNCE": "-1s"}},
		{"bad url", map[string]string{"TASKVIEW_API_URL": "not a url"}},
		{"bad log level", map[string]string{"TASKVIEW_LOG_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t, tt.vars)
			_, err := Load(missingFile(t))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
