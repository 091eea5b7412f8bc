package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

type ObservabilityConfig struct {
	ServiceName string         `koanf:"service_name"`
	Environment string         `koanf:"environment"`
	Logging     LoggingConfig  `koanf:"logging" validate:"required"`
	NewRelic    NewRelicConfig `koanf:"new_relic"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"required"`
	Format string `koanf:"format" validate:"required,oneof=console json"`
}

// NewRelicConfig enables the APM agent when LicenseKey is set.
type NewRelicConfig struct {
	LicenseKey string `koanf:"license_key"`
	AppName    string `koanf:"app_name"`
}

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Enabled reports whether New Relic should be started.
func (n NewRelicConfig) Enabled() bool {
	return n.LicenseKey != ""
}

func (o *ObservabilityConfig) Validate() error {
	if o.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if _, err := zerolog.ParseLevel(o.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level %q: %w", o.Logging.Level, err)
	}
	if o.NewRelic.Enabled() && len(o.NewRelic.LicenseKey) != 40 {
		return fmt.Errorf("new relic license key must be 40 characters")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (o *ObservabilityConfig) IsProduction() bool {
	return o.Environment == "production"
}
