package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"studentservices-api/internal/common/config"
	"studentservices-api/internal/notification/delivery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRetry(t *testing.T) {
	tests := []struct {
		name        string
		failures    int
		maxRetries  int
		wantErr     bool
		wantAttempt int
	}{
		{name: "first attempt succeeds", failures: 0, maxRetries: 3, wantAttempt: 1},
		{name: "succeeds after failures", failures: 2, maxRetries: 3, wantAttempt: 3},
		{name: "gives up", failures: 5, maxRetries: 3, wantErr: true, wantAttempt: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Retry(func() error {
				attempts++
				if attempts <= tt.failures {
					return errors.New("connection refused")
				}
				return nil
			}, tt.maxRetries, time.Millisecond, zaptest.NewLogger(t), "test connection")

			assert.Equal(t, tt.wantAttempt, attempts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "test connection failed after 3 attempts")
				assert.Contains(t, err.Error(), "connection refused")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOptionalClients(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	rdb, err := Redis(ctx, config.RedisConfig{}, log)
	require.NoError(t, err)
	assert.Nil(t, rdb)

	es, err := Elasticsearch(ctx, config.ElasticsearchConfig{}, log)
	require.NoError(t, err)
	assert.Nil(t, es)

	alerter, err := Alerter(ctx, &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, alerter)
}

func TestMailer(t *testing.T) {
	tests := []struct {
		name           string
		configure      func(cfg *config.Config)
		wantErr        bool
		validateOutput func(t *testing.T, m delivery.Mailer)
	}{
		{
			name: "smtp relay",
			configure: func(cfg *config.Config) {
				cfg.Notifications.Delivery.Transport = "smtp"
				cfg.Integrations.SMTP.Host = "smtp.example.com"
				cfg.Integrations.SMTP.Port = 587
			},
			validateOutput: func(t *testing.T, m delivery.Mailer) {
				require.NotNil(t, m)
				assert.Equal(t, "smtp", m.Name())
			},
		},
		{
			name: "smtp without host",
			configure: func(cfg *config.Config) {
				cfg.Notifications.Delivery.Transport = "smtp"
			},
			validateOutput: func(t *testing.T, m delivery.Mailer) {
				assert.Nil(t, m)
			},
		},
		{
			name: "unknown transport",
			configure: func(cfg *config.Config) {
				cfg.Notifications.Delivery.Transport = "pigeon"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Notifications.FromEmail = "noreply@studentservices.com"
			tt.configure(cfg)

			m, err := Mailer(context.Background(), cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, m)
		})
	}
}

func TestWorkerConfig(t *testing.T) {
	var n config.NotificationConfig
	n.Worker.QueueKey = "notifications:queue"
	n.Worker.ProcessingKey = "notifications:processing:worker-1"
	n.Worker.DelayedKey = "notifications:delayed"
	n.Worker.Concurrency = 4
	n.Worker.PollInterval = 1000
	n.Delivery.Timeout = 30000
	n.Retry = config.RetrySettings{MaxRetries: 3, BaseDelay: 60, MaxDelay: 3600}

	wc := WorkerConfig(n)

	assert.Equal(t, "notifications:queue", wc.QueueKey)
	assert.Equal(t, "notifications:processing:worker-1", wc.ProcessingKey)
	assert.Equal(t, "notifications:delayed", wc.DelayedKey)
	assert.Equal(t, 4, wc.Concurrency)
	assert.Equal(t, time.Second, wc.PollInterval)
	assert.Equal(t, 30*time.Second, wc.SendTimeout)
	assert.Equal(t, delivery.RetryPolicy{MaxRetries: 3, BaseDelay: time.Minute, MaxDelay: time.Hour}, wc.Retry)
}
