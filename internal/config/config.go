package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"workclock.db"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
	} `yaml:"log"`

	Server struct {
		Port         int `yaml:"port" env:"HTTP_PORT" env-default:"8090"`
		ReadTimeout  int `yaml:"read_timeout" env-default:"15"`
		WriteTimeout int `yaml:"write_timeout" env-default:"15"`
		IdleTimeout  int `yaml:"idle_timeout" env-default:"60"`
	} `yaml:"server"`

	Timer struct {
		// RefreshInterval drives the display re-projection cadence, in
		// seconds. Accounting correctness does not depend on it.
		RefreshInterval int `yaml:"refresh_interval" env:"TIMER_REFRESH_INTERVAL" env-default:"1"`
	} `yaml:"timer"`

	Queue struct {
		RetryInterval   int `yaml:"retry_interval" env-default:"60"`
		CleanupAfterHrs int `yaml:"cleanup_after_hours" env-default:"168"`
	} `yaml:"queue"`
}

// LoadConfig reads the YAML file at path with environment overrides. A
// missing file is not fatal: defaults plus environment are used instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}
