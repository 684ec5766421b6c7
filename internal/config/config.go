package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Email     EmailConfig     `mapstructure:"email"`
	Push      PushConfig      `mapstructure:"push"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type NotifierConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	QueueSize   int           `mapstructure:"queue_size"`
	Workers     int           `mapstructure:"workers"`
}

type EmailConfig struct {
	Host          string  `mapstructure:"host"`
	Port          int     `mapstructure:"port"`
	Username      string  `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password      string  `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From          string  `mapstructure:"from"`
	FromName      string  `mapstructure:"from_name"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type PushConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CredentialsJSON string        `mapstructure:"credentials_json" envconfig:"FCM_CREDENTIALS_JSON"`
	CredentialsFile string        `mapstructure:"credentials_file" envconfig:"FCM_CREDENTIALS_FILE"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Hour     int    `mapstructure:"hour"`
	Minute   int    `mapstructure:"minute"`
	Timezone string `mapstructure:"timezone"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoadConfig reads config.yaml via viper, then overlays secrets from the
// environment so credentials never have to live in the file.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("notifier.enabled", true)
	viper.SetDefault("notifier.send_timeout", "30s")
	viper.SetDefault("notifier.queue_size", 256)
	viper.SetDefault("notifier.workers", 4)

	viper.SetDefault("email.port", 587)
	viper.SetDefault("email.from_name", "CleanGuard QC")
	viper.SetDefault("email.rate_per_second", 5)

	viper.SetDefault("push.timeout", "10s")

	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.hour", 8)
	viper.SetDefault("scheduler.minute", 0)
	viper.SetDefault("scheduler.timezone", "America/Los_Angeles")

	viper.SetDefault("logger.level", "info")
}
