package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/platform/db"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/platform/obs"
	"signal-simulation-service/internal/services"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StoreConfig describes how to reach the tower store.
type StoreConfig struct {
	Driver string // postgres | sqlite

	// Postgres. URL wins over the individual parts when set.
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	// SQLite file path.
	Path string

	ProbeTimeout time.Duration
}

// DSN returns the driver-specific data source name.
func (s StoreConfig) DSN() string {
	switch s.Driver {
	case db.DriverSQLite:
		return db.SQLiteDSN(s.Path)
	default:
		if s.URL != "" {
			return s.URL
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(s.User, s.Password),
			Host:   net.JoinHostPort(s.Host, s.Port),
			Path:   "/" + s.Name,
		}
		q := url.Values{}
		q.Set("sslmode", s.SSLMode)
		u.RawQuery = q.Encode()
		return u.String()
	}
}

type LocatorConfig struct {
	URL         string
	Timeout     time.Duration
	MaxInFlight int64
}

type RedisConfig struct {
	URL     string // empty disables the init lock
	LockTTL time.Duration
}

// Config is resolved once at process start and passed down explicitly.
type Config struct {
	Port        string
	MetricsAddr string
	Speed       float64

	Store   StoreConfig
	Locator LocatorConfig
	Redis   RedisConfig
	Layout  services.LayoutConfig
	Logging logging.Config
	Tracing obs.TracingConfig
}

// simulationFile mirrors the optional YAML tuning file. Pointer fields
// distinguish "absent" from zero values.
type simulationFile struct {
	Speed  *float64 `yaml:"propagation_speed"`
	Towers struct {
		Policy      *string  `yaml:"policy"`
		Count       *int     `yaml:"count"`
		WorldSize   *int     `yaml:"world_size"`
		MinDistance *float64 `yaml:"min_distance"`
		MaxAttempts *int     `yaml:"max_attempts"`
		Radius      *int     `yaml:"radius"`
		Jitter      *int     `yaml:"jitter"`
		Padding     *int     `yaml:"padding"`
	} `yaml:"towers"`
}

// Load reads .env (if present), the optional YAML file named by
// SIM_CONFIG_PATH, then environment variables, which take precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        Get("PORT", "8080"),
		MetricsAddr: Get("METRICS_ADDR", ":9090"),
		Speed:       domain.DefaultSpeedOfSound,
		Layout:      services.DefaultLayoutConfig(),
		Logging: logging.Config{
			Level:  Get("LOG_LEVEL", "info"),
			Format: Get("LOG_FORMAT", "text"),
		},
	}

	if path := strings.TrimSpace(os.Getenv("SIM_CONFIG_PATH")); path != "" {
		if err := applySimulationFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	cfg.Speed, err = getFloat("PROPAGATION_SPEED", cfg.Speed)
	collect(err)

	cfg.Layout.Policy = services.PlacementPolicy(Get("TOWER_POLICY", string(cfg.Layout.Policy)))
	cfg.Layout.Count, err = getInt("TOWER_COUNT", cfg.Layout.Count)
	collect(err)
	cfg.Layout.WorldSize, err = getInt("WORLD_SIZE", cfg.Layout.WorldSize)
	collect(err)
	cfg.Layout.MinDistance, err = getFloat("MIN_DISTANCE", cfg.Layout.MinDistance)
	collect(err)
	cfg.Layout.MaxAttempts, err = getInt("MAX_ATTEMPTS", cfg.Layout.MaxAttempts)
	collect(err)
	cfg.Layout.Radius, err = getInt("LAYOUT_RADIUS", cfg.Layout.Radius)
	collect(err)
	cfg.Layout.Jitter, err = getInt("LAYOUT_JITTER", cfg.Layout.Jitter)
	collect(err)
	cfg.Layout.Padding, err = getInt("LAYOUT_PADDING", cfg.Layout.Padding)
	collect(err)

	cfg.Store = StoreConfig{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     Get("DB_HOST", "localhost"),
		Port:     Get("DB_PORT", "5432"),
		User:     Get("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     Get("DB_NAME", "signals"),
		SSLMode:  Get("DB_SSLMODE", "disable"),
		Path:     Get("DB_PATH", "data/towers.db"),
	}
	defaultDriver := db.DriverSQLite
	if cfg.Store.URL != "" {
		defaultDriver = db.DriverPostgres
	}
	cfg.Store.Driver = strings.ToLower(Get("DB_DRIVER", defaultDriver))
	cfg.Store.ProbeTimeout, err = getDuration("STORE_PROBE_TIMEOUT", 5*time.Second)
	collect(err)

	cfg.Locator.URL = Get("LOCATOR_URL", "http://locator:8000/bundle")
	cfg.Locator.Timeout, err = getDuration("LOCATOR_TIMEOUT", 5*time.Second)
	collect(err)
	maxInFlight, err := getInt("LOCATOR_MAX_INFLIGHT", 64)
	collect(err)
	cfg.Locator.MaxInFlight = int64(maxInFlight)

	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.Redis.LockTTL, err = getDuration("REDIS_LOCK_TTL", 30*time.Second)
	collect(err)

	cfg.Tracing = obs.TracingConfig{
		ServiceName: Get("OTEL_SERVICE_NAME", "signal-simulation-service"),
		Exporter:    Get("OTEL_EXPORTER", "stdout"),
		Endpoint:    Get("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	cfg.Tracing.Enabled, err = getBool("OTEL_ENABLED", false)
	collect(err)
	cfg.Tracing.SampleRatio, err = getFloat("OTEL_SAMPLE_RATIO", 1)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("load config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if err := domain.ValidateSpeed(c.Speed); err != nil {
		errs = append(errs, err)
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Store.Driver))
	}
	if c.Store.Driver == db.DriverSQLite && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("DB_PATH is required for sqlite"))
	}
	if strings.TrimSpace(c.Locator.URL) == "" {
		errs = append(errs, errors.New("LOCATOR_URL is required"))
	}
	if c.Locator.MaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("LOCATOR_MAX_INFLIGHT must be >= 1, got %d", c.Locator.MaxInFlight))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func applySimulationFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: read %s: %w", path, err)
	}
	var f simulationFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("load config: parse %s: %w", path, err)
	}

	if f.Speed != nil {
		cfg.Speed = *f.Speed
	}
	t := f.Towers
	if t.Policy != nil {
		cfg.Layout.Policy = services.PlacementPolicy(*t.Policy)
	}
	if t.Count != nil {
		cfg.Layout.Count = *t.Count
	}
	if t.WorldSize != nil {
		cfg.Layout.WorldSize = *t.WorldSize
	}
	if t.MinDistance != nil {
		cfg.Layout.MinDistance = *t.MinDistance
	}
	if t.MaxAttempts != nil {
		cfg.Layout.MaxAttempts = *t.MaxAttempts
	}
	if t.Radius != nil {
		cfg.Layout.Radius = *t.Radius
	}
	if t.Jitter != nil {
		cfg.Layout.Jitter = *t.Jitter
	}
	if t.Padding != nil {
		cfg.Layout.Padding = *t.Padding
	}
	return nil
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
