package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	MetricsPort     int      `mapstructure:"metrics_port"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// DashboardTTL bounds how long aggregated dashboard payloads are cached.
	DashboardTTL int `mapstructure:"dashboard_ttl"` // seconds
}

// ElasticsearchConfig enables the optional request search index.
type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// AuthConfig holds the staff token settings.
type AuthConfig struct {
	JWT struct {
		Secret   string `mapstructure:"secret"`
		Issuer   string `mapstructure:"issuer"`
		TokenTTL int    `mapstructure:"token_ttl"` // minutes
	} `mapstructure:"jwt"`
}

// IntegrationConfig holds settings for mail and SMS transports.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled bool `mapstructure:"enabled"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled     bool   `mapstructure:"enabled"`
			AlertPhone  string `mapstructure:"alert_phone"`
			AlertTopic  string `mapstructure:"alert_topic_arn"`
			SMSSenderID string `mapstructure:"sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`
}

// NotificationConfig drives the notification pipeline.
type NotificationConfig struct {
	FromEmail    string `mapstructure:"from_email"`
	FrontendURL  string `mapstructure:"frontend_url"`
	ContactEmail string `mapstructure:"contact_email"`
	ContactPhone string `mapstructure:"contact_phone"`

	Delivery struct {
		// queued, sync, disabled or auto
		Strategy string `mapstructure:"strategy"`
		// ses or smtp
		Transport string `mapstructure:"transport"`
		Timeout   int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"delivery"`

	Retry RetrySettings `mapstructure:"retry"`

	Worker struct {
		InProcess    bool   `mapstructure:"in_process"`
		Concurrency  int    `mapstructure:"concurrency"`
		QueueKey      string `mapstructure:"queue_key"`
		ProcessingKey string `mapstructure:"processing_key"`
		DelayedKey    string `mapstructure:"delayed_key"`
		PollInterval int    `mapstructure:"poll_interval"` // milliseconds
	} `mapstructure:"worker"`

	Schedule struct {
		OverdueSweep      string `mapstructure:"overdue_sweep"`
		AttachmentCleanup string `mapstructure:"attachment_cleanup"`
	} `mapstructure:"schedule"`
}

type RetrySettings struct {
	MaxRetries int `mapstructure:"max_retries"`
	BaseDelay  int `mapstructure:"base_delay"` // seconds
	MaxDelay   int `mapstructure:"max_delay"`  // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
