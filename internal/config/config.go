package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr   string `env:"DMS_ADDR" env-default:":8080"`
	DBPath     string `env:"DMS_DB_PATH" env-default:"formflow.sqlite"`
	JWTSecret  string `env:"DMS_JWT_SECRET" env-default:"formflow-dev-secret-change-me"`
	AdminEmail string `env:"DMS_ADMIN_EMAIL" env-default:"admin@formflow.local"`
	AdminPass  string `env:"DMS_ADMIN_PASS" env-default:"admin123"`
	GelfAddr   string `env:"DMS_GELF_ADDR"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" env-default:"formflow.workflow"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}

// Brokers splits the comma-separated KAFKA_BROKERS value. Empty when the
// notification sink should fall back to log-only mode.
func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	return strings.Split(c.KafkaBrokers, ",")
}
