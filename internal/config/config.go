// Package config loads runtime configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains runtime configuration required by the service.
type Config struct {
	Addr    string            `mapstructure:"ADDR"`
	APIKeys map[string]string `mapstructure:"-"` // apiKey -> source
	// APIKeysRaw format: "source1:key1,source2:key2"
	APIKeysRaw string `mapstructure:"API_KEYS"`

	// WriteKey is the Persio credential sent as Basic auth.
	WriteKey string `mapstructure:"WRITE_KEY"`
	// PersioEndpoint is the API base the call type is appended to.
	PersioEndpoint string `mapstructure:"PERSIO_ENDPOINT"`

	// ClientStore is one of memory, postgres, pebble.
	ClientStore string `mapstructure:"CLIENT_STORE"`
	DBURL       string `mapstructure:"DB_URL"`
	PebbleDir   string `mapstructure:"PEBBLE_DIR"`

	SessionTTL   time.Duration `mapstructure:"SESSION_TTL"`
	FetchTimeout time.Duration `mapstructure:"FETCH_TIMEOUT"`

	// Kafka ingress is enabled when KafkaBrokers is non-empty.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	Env      string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then the environment, and validates the result.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("ADDR", ":8080")
	v.SetDefault("API_KEYS", "")
	v.SetDefault("WRITE_KEY", "")
	v.SetDefault("PERSIO_ENDPOINT", "https://api.persio.io/v1/")
	v.SetDefault("CLIENT_STORE", "memory")
	v.SetDefault("DB_URL", "")
	v.SetDefault("PEBBLE_DIR", "")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("FETCH_TIMEOUT", "10s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "persio-events")
	v.SetDefault("KAFKA_GROUP_ID", "persio-forwarder")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.Addr) == "" {
		return Config{}, errors.New("config: ADDR must be set")
	}
	if !strings.HasSuffix(cfg.PersioEndpoint, "/") {
		cfg.PersioEndpoint += "/"
	}

	switch cfg.ClientStore {
	case "memory":
	case "postgres":
		if strings.TrimSpace(cfg.DBURL) == "" {
			return Config{}, errors.New("config: DB_URL required when CLIENT_STORE=postgres")
		}
	case "pebble":
		if strings.TrimSpace(cfg.PebbleDir) == "" {
			return Config{}, errors.New("config: PEBBLE_DIR required when CLIENT_STORE=pebble")
		}
	default:
		return Config{}, errors.New("config: CLIENT_STORE must be memory, postgres or pebble")
	}

	keys, err := ParseAPIKeys(cfg.APIKeysRaw)
	if err != nil {
		return Config{}, err
	}
	cfg.APIKeys = keys

	return cfg, nil
}

// ParseAPIKeys parses "source:key,source:key" into key -> source.
// An empty string yields a local dev key so the service runs out-of-the-box.
func ParseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}

	for _, p := range strings.Split(strings.TrimSpace(raw), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`config: API_KEYS must be "source:key,source:key"`)
		}
		source := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if source == "" || key == "" {
			return nil, errors.New(`config: API_KEYS must be "source:key,source:key"`)
		}
		apiKeys[key] = source
	}

	if len(apiKeys) == 0 {
		apiKeys["source-key-123"] = "local"
	}
	return apiKeys, nil
}

// KafkaBrokerList returns broker addresses from the comma-separated config.
func (c Config) KafkaBrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
