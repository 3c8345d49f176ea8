package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges the config.<APP_ENVIRONMENT>.yaml
// overlay and lets environment variables override any key.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v, env)
}

// LoadFromFile reads a single config file, used by tests and tools.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v, os.Getenv("APP_ENVIRONMENT"))
}

func finish(v *viper.Viper, env string) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Auth.JWT.Secret == "" {
		cfg.Auth.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if cfg.Integrations.SMTP.Password == "" {
		cfg.Integrations.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	}
	if cfg.Notifications.FrontendURL == "" {
		if val := os.Getenv("FRONTEND_URL"); val != "" {
			cfg.Notifications.FrontendURL = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "studentservices-api"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.DashboardTTL == 0 {
		cfg.Database.Redis.DashboardTTL = 60
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "service_requests"
	}

	if cfg.Auth.JWT.Issuer == "" {
		cfg.Auth.JWT.Issuer = "studentservices-api"
	}
	if cfg.Auth.JWT.TokenTTL == 0 {
		cfg.Auth.JWT.TokenTTL = 24 * 60
	}

	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}
	if cfg.Integrations.SMTP.Port == 0 {
		cfg.Integrations.SMTP.Port = 587
	}

	n := &cfg.Notifications
	if n.FromEmail == "" {
		n.FromEmail = "noreply@studentservices.com"
	}
	if n.FrontendURL == "" {
		n.FrontendURL = "http://localhost:3000"
	}
	if n.ContactEmail == "" {
		n.ContactEmail = "support@studentservices.com"
	}
	if n.ContactPhone == "" {
		n.ContactPhone = "+1 (555) 123-4567"
	}
	if n.Delivery.Strategy == "" {
		n.Delivery.Strategy = "auto"
	}
	if n.Delivery.Transport == "" {
		n.Delivery.Transport = "smtp"
	}
	if n.Delivery.Timeout == 0 {
		n.Delivery.Timeout = 30000
	}
	if n.Retry.MaxRetries == 0 {
		n.Retry.MaxRetries = 3
	}
	if n.Retry.BaseDelay == 0 {
		n.Retry.BaseDelay = 60
	}
	if n.Retry.MaxDelay == 0 {
		n.Retry.MaxDelay = 3600
	}
	if n.Worker.Concurrency == 0 {
		n.Worker.Concurrency = 4
	}
	if n.Worker.QueueKey == "" {
		n.Worker.QueueKey = "notifications:queue"
	}
	if n.Worker.ProcessingKey == "" {
		n.Worker.ProcessingKey = n.Worker.QueueKey + ":processing"
	}
	if n.Worker.DelayedKey == "" {
		n.Worker.DelayedKey = "notifications:delayed"
	}
	if n.Worker.PollInterval == 0 {
		n.Worker.PollInterval = 1000
	}
	if n.Schedule.OverdueSweep == "" {
		n.Schedule.OverdueSweep = "0 9 * * *"
	}
	if n.Schedule.AttachmentCleanup == "" {
		n.Schedule.AttachmentCleanup = "0 3 * * 0"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Auth.JWT.Secret == "" {
		return fmt.Errorf("auth.jwt.secret is required")
	}

	switch cfg.Notifications.Delivery.Strategy {
	case "queued", "sync", "disabled", "auto":
	default:
		return fmt.Errorf("notifications.delivery.strategy must be one of queued, sync, disabled, auto")
	}
	if cfg.Notifications.Delivery.Strategy == "queued" && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required for the queued delivery strategy")
	}

	switch cfg.Notifications.Delivery.Transport {
	case "ses", "smtp":
	default:
		return fmt.Errorf("notifications.delivery.transport must be ses or smtp")
	}

	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when search is enabled")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
