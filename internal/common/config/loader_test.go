package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: studentservices
    user: ${TEST_DB_USER}
auth:
  jwt:
    secret: s3cret
`

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		env            map[string]string
		wantErr        string
		validateOutput func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults applied",
			body: minimalConfig,
			env:  map[string]string{"TEST_DB_USER": "svc"},
			validateOutput: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "svc", cfg.Database.Postgres.User)
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.Equal(t, ":8000", cfg.Server.Addr())
				assert.Equal(t, "auto", cfg.Notifications.Delivery.Strategy)
				assert.Equal(t, "smtp", cfg.Notifications.Delivery.Transport)
				assert.Equal(t, "0 9 * * *", cfg.Notifications.Schedule.OverdueSweep)
				assert.Equal(t, "notifications:queue", cfg.Notifications.Worker.QueueKey)
				assert.Equal(t, "notifications:queue:processing", cfg.Notifications.Worker.ProcessingKey)
				assert.Equal(t, 3, cfg.Notifications.Retry.MaxRetries)
				assert.Equal(t, 24*60, cfg.Auth.JWT.TokenTTL)
				assert.Equal(t, 60, cfg.Database.Redis.DashboardTTL)
			},
		},
		{
			name: "environment overrides file",
			body: minimalConfig + `
notifications:
  delivery:
    strategy: auto
    transport: smtp
`,
			env: map[string]string{
				"TEST_DB_USER":                     "svc",
				"NOTIFICATIONS_DELIVERY_STRATEGY":  "disabled",
				"NOTIFICATIONS_DELIVERY_TRANSPORT": "ses",
			},
			validateOutput: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "disabled", cfg.Notifications.Delivery.Strategy)
				assert.Equal(t, "ses", cfg.Notifications.Delivery.Transport)
				assert.Contains(t, cfg.Database.Postgres.GetDSN(), "sslmode=disable")
			},
		},
		{
			name:    "missing jwt secret",
			body:    "database:\n  postgres:\n    host: localhost\n    database: db\n    user: svc\n",
			wantErr: "auth.jwt.secret is required",
		},
		{
			name: "queued strategy needs redis",
			body: minimalConfig + `
notifications:
  delivery:
    strategy: queued
`,
			env:     map[string]string{"TEST_DB_USER": "svc"},
			wantErr: "database.redis.address is required",
		},
		{
			name: "unknown strategy",
			body: minimalConfig + `
notifications:
  delivery:
    strategy: carrier-pigeon
`,
			env:     map[string]string{"TEST_DB_USER": "svc"},
			wantErr: "notifications.delivery.strategy must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFromFile(writeConfig(t, tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, cfg)
		})
	}
}
