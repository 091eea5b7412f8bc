package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SITELOG_"

type Config struct {
	Primary       Primary             `koanf:"primary" validate:"required"`
	Server        ServerConfig        `koanf:"server" validate:"required"`
	Telegram      TelegramConfig      `koanf:"telegram" validate:"required"`
	Relay         RelayConfig         `koanf:"relay" validate:"required"`
	Geo           GeoConfig           `koanf:"geo"`
	Observability ObservabilityConfig `koanf:"observability" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	StaticDir          string   `koanf:"static_dir"`
	// TrustProxy makes the client address come from X-Forwarded-For when the
	// header is present. Any client can set that header, so enable it only
	// behind a reverse proxy that overwrites it.
	TrustProxy bool `koanf:"trust_proxy"`
}

type TelegramConfig struct {
	BotToken   string        `koanf:"bot_token"`
	ChatID     string        `koanf:"chat_id"`
	APIBaseURL string        `koanf:"api_base_url" validate:"required,url"`
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
}

type RelayConfig struct {
	AccessToken   string   `koanf:"access_token"`
	AllowedIPs    []string `koanf:"allowed_ips" validate:"required,min=1"`
	LogFile       string   `koanf:"log_file" validate:"required"`
	LogMaxSizeMB  int      `koanf:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups int      `koanf:"log_max_backups" validate:"gte=0"`
	// NotifyVisits relays a message for every page the static site serves.
	NotifyVisits bool `koanf:"notify_visits"`
}

type GeoConfig struct {
	Enabled bool          `koanf:"enabled"`
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// Credentials are the three secrets the logging endpoint cannot work without.
type Credentials struct {
	BotToken    string
	ChatID      string
	AccessToken string
}

// Complete reports whether every credential is set.
func (c Credentials) Complete() bool {
	return c.BotToken != "" && c.ChatID != "" && c.AccessToken != ""
}

func (c *Config) Credentials() Credentials {
	return Credentials{
		BotToken:    c.Telegram.BotToken,
		ChatID:      c.Telegram.ChatID,
		AccessToken: c.Relay.AccessToken,
	}
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  10,
			WriteTimeout: 15,
			IdleTimeout:  60,
		},
		Telegram: TelegramConfig{
			APIBaseURL: "https://api.telegram.org",
			Timeout:    5 * time.Second,
		},
		Relay: RelayConfig{
			LogFile:      "logs/requests.log",
			NotifyVisits: true,
		},
		Geo: GeoConfig{
			Enabled: true,
			BaseURL: "http://ip-api.com",
			Timeout: 3 * time.Second,
		},
		Observability: *DefaultObservabilityConfig(),
	}
}

// DefaultAllowedIPs is the allow-list used when relay.allowed_ips is not set.
var DefaultAllowedIPs = []string{"127.0.0.1", "::1", "192.168.0.0/16"}

// legacyKeys maps the variable names of the original .env file onto config keys.
var legacyKeys = map[string]string{
	"TELEGRAM_BOT_TOKEN":  "telegram.bot_token",
	"TELEGRAM_CHAT_ID":    "telegram.chat_id",
	"LOGGER_ACCESS_TOKEN": "relay.access_token",
}

// listKeys hold comma separated values in the environment.
var listKeys = map[string]bool{
	"relay.allowed_ips":           true,
	"server.cors_allowed_origins": true,
}

// LoadConfig builds the configuration from defaults, the given .env files
// (".env" when none are given) and the environment. Variables named
// SITELOG_<SECTION>__<KEY> take precedence over the legacy names.
func LoadConfig(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyKeys[s]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load legacy env variables: %w", err)
	}

	err = k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "__", ".")
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	mainConfig := DefaultConfig()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(mainConfig.Relay.AllowedIPs) == 0 {
		mainConfig.Relay.AllowedIPs = append([]string(nil), DefaultAllowedIPs...)
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// fill some of the fields
	mainConfig.Observability.ServiceName = "sitelog"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
