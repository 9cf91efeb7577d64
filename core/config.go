package core

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	ServiceName    string        `koanf:"service_name" mapstructure:"service_name"`
	Host           string        `koanf:"host" mapstructure:"host"`
	DefaultCountry string        `koanf:"default_country" mapstructure:"default_country"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    "relay",
		RequestTimeout: 30 * time.Second,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("core: request_timeout must not be negative")
	}
	return nil
}
