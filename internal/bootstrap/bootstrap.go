// Package bootstrap connects the infrastructure shared by the api server
// and the notification worker.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	awsclient "studentservices-api/internal/common/aws"
	"studentservices-api/internal/common/config"
	"studentservices-api/internal/common/database"
	"studentservices-api/internal/notification/delivery"
	"studentservices-api/internal/notification/dispatcher"

	"go.uber.org/zap"
)

// Retry runs operation until it succeeds, doubling the delay after each
// failure.
func Retry(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func Postgres(ctx context.Context, cfg config.PostgresConfig, log *zap.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := Retry(func() error {
		var err error
		pg, err = database.NewPostgres(cfg)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	log.Info("PostgreSQL connected successfully")
	return pg, nil
}

// Redis returns nil without error when no address is configured.
func Redis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*database.RedisClient, error) {
	if cfg.Address == "" {
		log.Info("Redis not configured, queue and cache disabled")
		return nil, nil
	}
	var rdb *database.RedisClient
	err := Retry(func() error {
		var err error
		rdb, err = database.NewRedis(cfg)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return nil, err
	}
	log.Info("Redis connected successfully")
	return rdb, nil
}

// Elasticsearch returns nil without error when search is disabled.
func Elasticsearch(ctx context.Context, cfg config.ElasticsearchConfig, log *zap.Logger) (*database.ElasticsearchClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var es *database.ElasticsearchClient
	err := Retry(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg, nil)
		if err != nil {
			return err
		}
		return es.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return nil, err
	}
	log.Info("Elasticsearch connected successfully")
	return es, nil
}

// Mailer builds the configured mail transport.
func Mailer(ctx context.Context, cfg *config.Config) (delivery.Mailer, error) {
	from := cfg.Notifications.FromEmail
	switch cfg.Notifications.Delivery.Transport {
	case "ses":
		client, err := awsclient.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		return delivery.NewSESMailer(client, from), nil
	case "smtp":
		smtp := cfg.Integrations.SMTP
		if smtp.Host == "" {
			return nil, nil
		}
		return delivery.NewSMTPMailer(delivery.SMTPConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			Username: smtp.Username,
			Password: smtp.Password,
			UseTLS:   smtp.UseTLS,
			From:     from,
		}), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Notifications.Delivery.Transport)
	}
}

// Alerter returns the SMS alerter, or nil when SNS is disabled.
func Alerter(ctx context.Context, cfg *config.Config) (dispatcher.Alerter, error) {
	sns := cfg.Integrations.AWS.SNS
	if !sns.Enabled {
		return nil, nil
	}
	client, err := awsclient.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("sns client: %w", err)
	}
	return delivery.NewSMSAlerter(client, sns.AlertPhone, sns.AlertTopic, sns.SMSSenderID), nil
}

func WorkerConfig(cfg config.NotificationConfig) delivery.WorkerConfig {
	return delivery.WorkerConfig{
		QueueKey:      cfg.Worker.QueueKey,
		ProcessingKey: cfg.Worker.ProcessingKey,
		DelayedKey:    cfg.Worker.DelayedKey,
		Concurrency:   cfg.Worker.Concurrency,
		PollInterval:  config.GetDuration(cfg.Worker.PollInterval),
		SendTimeout:   config.GetDuration(cfg.Delivery.Timeout),
		Retry: delivery.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelay) * time.Second,
			MaxDelay:   time.Duration(cfg.Retry.MaxDelay) * time.Second,
		},
	}
}
