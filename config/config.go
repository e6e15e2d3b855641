package config

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed config.toml
var defaultFS embed.FS

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

func (l LogLevel) ToSlog() slog.Level {
	switch LogLevel(strings.ToUpper(string(l))) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type LogFormat string

const (
	LogFormatPlaintext LogFormat = "plaintext"
	LogFormatJSON      LogFormat = "json"
)

type AppEnv string

const (
	AppEnvDev        AppEnv = "dev"
	AppEnvProduction AppEnv = "production"
)

type DatabaseProvider string

const (
	DatabaseProviderPostgres DatabaseProvider = "postgres"
	DatabaseProviderMemory   DatabaseProvider = "memory"
)

type Config struct {
	App        AppConfig
	Sentry     SentryConfig
	Database   DatabaseConfig
	Log        LogConfig
	Validation ValidationConfig
	Import     ImportConfig
}

type AppConfig struct {
	Debug           bool
	SSL             bool
	Port            uint32
	Host            string
	URL             string
	Name            string
	ShutdownTimeout int32 // in seconds
	Env             AppEnv
	Version         string
	RequestTimeout  uint32 // in seconds
}

type SentryConfig struct {
	Enabled      bool
	DSN          string
	SampleRate   float64
	TracesRate   float64
	ProfilesRate float64
}

type DatabaseConfig struct {
	Provider DatabaseProvider
	URL      string
	Schema   string
	// Run all pending migrations on startup
	Migrate         bool
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime int32 // in seconds
	MaxConnIdleTime int32 // in seconds
}

type LogConfig struct {
	Format  LogFormat
	Level   LogLevel
	Verbose bool
}

type ValidationConfig struct {
	// Reject suspicious values instead of only warning about them
	Strict bool
}

type ImportConfig struct {
	File      string
	Delimiter string
	BatchSize int
	Truncate  bool
	// Debounce timer between subsequent imports in watch mode, in milliseconds
	Debounce int32
}

// DelimiterRune returns the import field delimiter.
func (c ImportConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.MaxConnLifetime) * time.Second
}

func (c DatabaseConfig) ConnMaxIdleTime() time.Duration {
	return time.Duration(c.MaxConnIdleTime) * time.Second
}

func (c Config) BaseURL() string {
	url := c.App.URL
	// If no url was specified, build one from the host and port values
	if len(c.App.URL) == 0 {
		url = fmt.Sprintf("%v:%v", c.App.Host, c.App.Port)
	}
	protocol := "http"
	if c.App.SSL {
		protocol = "https"
	}
	return fmt.Sprintf(
		"%s://%s",
		protocol,
		url,
	)
}

// IsDev reports whether the application runs in the development environment.
func (c Config) IsDev() bool {
	return c.App.Env == AppEnvDev
}

func (c *Config) IsTest() bool {
	return flag.Lookup("test.v") != nil || strings.HasSuffix(os.Args[0], ".test") ||
		strings.Contains(os.Args[0], "/_test/")
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Provider {
	case DatabaseProviderPostgres:
		if len(c.Database.URL) == 0 {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres provider"))
		}
	case DatabaseProviderMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database provider %q", c.Database.Provider))
	}
	if c.Log.Format != LogFormatJSON && c.Log.Format != LogFormatPlaintext {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if utf8.RuneCountInString(c.Import.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("IMPORT_DELIMITER must be a single character, got %q", c.Import.Delimiter))
	}
	if c.Import.BatchSize <= 0 {
		errs = append(errs, errors.New("IMPORT_BATCHSIZE must be greater than 0"))
	}
	return errors.Join(errs...)
}

// LoadDefault loads the embedded default configuration, overridden by the environment.
func LoadDefault(dotenvFiles ...string) (*Config, error) {
	return Load(defaultFS, dotenvFiles...)
}

// Load the configuration file from the specified filesystem.
// You can specify additional .env files to load, by default this only checks for ".env" in the
// current working directory.
func Load(configFS fs.FS, dotenvFiles ...string) (*Config, error) {
	file, err := configFS.Open("config.toml")
	if err != nil {
		return nil, fmt.Errorf("could not find config.toml in the configFS: %w", err)
	}
	defer file.Close()

	reader := viper.NewWithOptions(viper.KeyDelimiter("_"))
	reader.SetConfigType("toml")

	if err = reader.ReadConfig(file); err != nil {
		return nil, fmt.Errorf("could not load the app configuration: %w", err)
	}

	// Environment override
	err = godotenv.Load(dotenvFiles...)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("No .env file found, continuing...")
	} else if err != nil {
		return nil, fmt.Errorf(".env file found, but could not load it: %w", err)
	}
	reader.AutomaticEnv()

	var config Config
	if err := reader.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.App.Debug && !config.IsTest() {
		slog.Warn("APP_DEBUG is turned on, do not run this mode in production!")
	}

	return &config, nil
}
