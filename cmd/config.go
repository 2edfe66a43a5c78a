package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	RelayNone     = "none"
	RelayPostgres = "postgres"
	RelayRabbitMQ = "rabbitmq"

	// ConfigFileEnv names the optional TOML file with defaults.
	ConfigFileEnv = "TRACKER_CONFIG_FILE"
)

// Config is the process configuration. A TOML file provides defaults, the
// environment (optionally loaded from .env) overrides them.
type Config struct {
	HTTPPort   string `toml:"http_port"`
	DBHost     string `toml:"db_host"`
	DBPort     string `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`
	DBSslMode  string `toml:"db_sslmode"`

	StorageBackend string `toml:"storage_backend"`
	RelayBackend   string `toml:"relay_backend"`
	AMQPURL        string `toml:"amqp_url"`

	JWTSecret        string        `toml:"jwt_secret"`
	AuthDisabled     bool          `toml:"auth_disabled"`
	StrictValidation bool          `toml:"strict_validation"`
	IdleTimeout      time.Duration `toml:"idle_timeout"`

	GeocoderURL       string `toml:"geocoder_url"`
	GeocoderUserAgent string `toml:"geocoder_user_agent"`

	LogLevel string `toml:"log_level"`

	// Accounts seeds the account directory of the memory backend.
	Accounts []AccountSeed `toml:"accounts"`
}

// AccountSeed is one account of the memory backend.
type AccountSeed struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	Role string `toml:"role"`
}

// DefaultConfig returns the values used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		HTTPPort:          "8080",
		DBHost:            "localhost",
		DBPort:            "5432",
		DBSslMode:         "disable",
		StorageBackend:    StoragePostgres,
		RelayBackend:      RelayNone,
		IdleTimeout:       60 * time.Second,
		GeocoderURL:       "https://nominatim.openstreetmap.org",
		GeocoderUserAgent: "courier-tracker/1.0",
		LogLevel:          "info",
	}
}

// LoadConfig builds the configuration from the TOML file named by
// TRACKER_CONFIG_FILE, the given .env files (".env" when none are given;
// missing files are skipped) and the process environment, then validates it.
func LoadConfig(envFiles ...string) (Config, error) {
	config := DefaultConfig()

	if path, ok := os.LookupEnv(ConfigFileEnv); ok && path != "" {
		meta, err := toml.DecodeFile(path, &config)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config file %s: unknown keys %v", path, undecoded)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	stringVars := map[string]*string{
		"HTTP_PORT":           &c.HTTPPort,
		"DB_HOST":             &c.DBHost,
		"DB_PORT":             &c.DBPort,
		"DB_USER":             &c.DBUser,
		"DB_PASSWORD":         &c.DBPassword,
		"DB_NAME":             &c.DBName,
		"DB_SSLMODE":          &c.DBSslMode,
		"STORAGE_BACKEND":     &c.StorageBackend,
		"RELAY_BACKEND":       &c.RelayBackend,
		"AMQP_URL":            &c.AMQPURL,
		"JWT_SECRET":          &c.JWTSecret,
		"GEOCODER_URL":        &c.GeocoderURL,
		"GEOCODER_USER_AGENT": &c.GeocoderUserAgent,
		"LOG_LEVEL":           &c.LogLevel,
	}
	for key, dst := range stringVars {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	var errList []error
	bools := map[string]*bool{
		"AUTH_DISABLED":     &c.AuthDisabled,
		"STRICT_VALIDATION": &c.StrictValidation,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = parsed
	}

	if v, ok := lookup("IDLE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			errList = append(errList, fmt.Errorf("IDLE_TIMEOUT: %w", err))
		} else {
			c.IdleTimeout = parsed
		}
	}

	return errors.Join(errList...)
}

// Validate rejects unknown backends, missing secrets and malformed values.
func (c Config) Validate() error {
	var errList []error

	if port, err := strconv.Atoi(c.HTTPPort); err != nil || port <= 0 || port > 65535 {
		errList = append(errList, fmt.Errorf("HTTP_PORT: invalid port %q", c.HTTPPort))
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if c.DBName == "" || c.DBUser == "" {
			errList = append(errList, errors.New("DB_NAME and DB_USER are required for the postgres backend"))
		}
	default:
		errList = append(errList, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", c.StorageBackend))
	}

	switch c.RelayBackend {
	case RelayNone:
	case RelayPostgres:
		if c.StorageBackend != StoragePostgres {
			errList = append(errList, errors.New("RELAY_BACKEND=postgres requires STORAGE_BACKEND=postgres"))
		}
	case RelayRabbitMQ:
		if c.AMQPURL == "" {
			errList = append(errList, errors.New("AMQP_URL is required for the rabbitmq relay"))
		}
	default:
		errList = append(errList, fmt.Errorf("RELAY_BACKEND: unknown backend %q", c.RelayBackend))
	}

	if c.JWTSecret == "" && !c.AuthDisabled {
		errList = append(errList, errors.New("JWT_SECRET is required unless AUTH_DISABLED is set"))
	}
	if c.IdleTimeout <= 0 {
		errList = append(errList, fmt.Errorf("IDLE_TIMEOUT: must be positive, got %s", c.IdleTimeout))
	}
	if _, err := c.SlogLevel(); err != nil {
		errList = append(errList, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	for i, seed := range c.Accounts {
		if seed.ID == "" {
			errList = append(errList, fmt.Errorf("accounts[%d]: id is required", i))
		}
		if _, err := agent.ParseRole(seed.Role); err != nil {
			errList = append(errList, fmt.Errorf("accounts[%d]: %w", i, err))
		}
	}

	return errors.Join(errList...)
}

func (c Config) seedAccounts() ([]*agent.Account, error) {
	accounts := make([]*agent.Account, 0, len(c.Accounts))
	for _, seed := range c.Accounts {
		role, err := agent.ParseRole(seed.Role)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", seed.ID, err)
		}
		account, err := agent.NewAccount(kernel.AgentID(seed.ID), seed.Name, role)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", seed.ID, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// DSN is the libpq connection string of the database.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}
