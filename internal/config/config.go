package config

import (
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"

	"github.com/raaihank/link-sentinel/internal/source"
)

var (
	mu sync.Mutex
	v  *viper.Viper
)

// env-overridable keys; viper only maps environment variables for keys it knows
var envKeys = []string{
	"server.port",
	"database.database_url",
	"rules.backend",
	"rules.redis_url",
	"rules.key_prefix",
	"rules.file_path",
	"site.base_url",
	"logging.level",
	"logging.format",
	"websocket.events.username",
	"websocket.events.password",
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	config := GetDefaults()

	nv := viper.New()
	nv.SetConfigName("config")
	nv.SetConfigType("yaml")
	nv.AddConfigPath(".")
	nv.AddConfigPath("./configs")
	nv.AddConfigPath("/etc/link-sentinel/")
	nv.AddConfigPath("$HOME/.link-sentinel/")

	// Environment variable overrides, e.g. SENTINEL_DATABASE_DATABASE_URL
	nv.SetEnvPrefix("SENTINEL")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()
	for _, key := range envKeys {
		if err := nv.BindEnv(key); err != nil {
			return nil, errors.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		nv.SetConfigFile(configPath)
	}

	if err := nv.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Errorf("failed to read config file: %w", err)
		}
	}

	if err := nv.Unmarshal(config); err != nil {
		return nil, errors.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Errorf("invalid configuration: %w", err)
	}

	mu.Lock()
	v = nv
	mu.Unlock()

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return errors.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return errors.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}
	if config.Logging.File.Enabled && config.Logging.File.Path == "" {
		return errors.New("logging.file.path is required when file logging is enabled")
	}

	switch config.Rules.Backend {
	case "redis":
		if config.Rules.RedisURL == "" {
			return errors.New("rules.redis_url is required for the redis backend")
		}
	case "file":
		if config.Rules.FilePath == "" {
			return errors.New("rules.file_path is required for the file backend")
		}
	case "memory":
	default:
		return errors.Errorf("invalid rules backend: %s (must be redis, file, or memory)", config.Rules.Backend)
	}

	if len(config.Audit.Sources) == 0 {
		return errors.New("audit.sources must name at least one source")
	}
	for _, name := range config.Audit.Sources {
		switch source.RecordType(name) {
		case source.TypeContent, source.TypeMetadata, source.TypeComment, source.TypeOption:
		default:
			return errors.Errorf("invalid audit source: %s", name)
		}
	}
	if len(config.Audit.PublicPostTypes) == 0 {
		return errors.New("audit.public_post_types must not be empty")
	}

	for _, pattern := range config.Rewrite.MetaKeys {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid rewrite.meta_keys pattern: %s", pattern)
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return errors.New("ratelimit.requests_per_second and ratelimit.burst must be positive")
	}

	return nil
}

// Watch calls callback with every valid configuration written to the loaded
// config file. Invalid changes are passed to onError and otherwise ignored.
func Watch(callback func(*Config), onError func(error)) error {
	mu.Lock()
	nv := v
	mu.Unlock()

	if nv == nil {
		return errors.New("config not loaded")
	}
	if nv.ConfigFileUsed() == "" {
		return errors.New("no config file to watch")
	}

	nv.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := nv.Unmarshal(newConfig); err != nil {
			onError(errors.Errorf("failed to unmarshal config: %w", err))
			return
		}

		if err := validateConfig(newConfig); err != nil {
			onError(errors.Errorf("invalid configuration in %s: %w", e.Name, err))
			return
		}

		callback(newConfig)
	})
	nv.WatchConfig()

	return nil
}
