package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings of the medication tracker service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	SessionTTL       time.Duration
	Timezone         string
	Location         *time.Location
	RemindersEnabled bool
	DrugSearchURL    string
	DrugSearchRPS    float64
	LogLevel         slog.Level
}

// fileConfig mirrors the YAML layout. Pointer fields distinguish absent keys
// from zero values.
type fileConfig struct {
	HTTP struct {
		Port *int `yaml:"port"`
	} `yaml:"http"`
	SQLite struct {
		DSN *string `yaml:"dsn"`
	} `yaml:"sqlite"`
	Session struct {
		TTL *string `yaml:"ttl"`
	} `yaml:"session"`
	Timezone  *string `yaml:"timezone"`
	Reminders struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"reminders"`
	DrugSearch struct {
		URL               *string  `yaml:"url"`
		RequestsPerSecond *float64 `yaml:"requests_per_second"`
	} `yaml:"drug_search"`
	Logging struct {
		Level *string `yaml:"level"`
	} `yaml:"logging"`
}

const (
	EnvConfigFile       = "MEDTRACK_CONFIG_FILE"
	EnvHTTPPort         = "MEDTRACK_HTTP_PORT"
	EnvSQLiteDSN        = "MEDTRACK_SQLITE_DSN"
	EnvSessionTTL       = "MEDTRACK_SESSION_TTL"
	EnvTimezone         = "MEDTRACK_TIMEZONE"
	EnvRemindersEnabled = "MEDTRACK_REMINDERS_ENABLED"
	EnvDrugSearchURL    = "MEDTRACK_DRUG_SEARCH_URL"
	EnvDrugSearchRPS    = "MEDTRACK_DRUG_SEARCH_RPS"
	EnvLogLevel         = "MEDTRACK_LOG_LEVEL"
)

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		HTTPPort:         8080,
		SQLiteDSN:        "medtrack.db",
		SessionTTL:       7 * 24 * time.Hour,
		Timezone:         "Local",
		Location:         time.Local,
		RemindersEnabled: true,
		DrugSearchURL:    "https://clinicaltables.nlm.nih.gov",
		DrugSearchRPS:    5,
		LogLevel:         slog.LevelInfo,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by MEDTRACK_CONFIG_FILE and MEDTRACK_* environment overrides, in that
// order. Every invalid value is reported in a single error.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(EnvConfigFile))
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	invalid := cfg.applyEnv()
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// LoadFile reads path without consulting the environment.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	var invalid []string
	if fc.HTTP.Port != nil {
		if *fc.HTTP.Port <= 0 {
			invalid = append(invalid, "http.port")
		} else {
			c.HTTPPort = *fc.HTTP.Port
		}
	}
	if fc.SQLite.DSN != nil && strings.TrimSpace(*fc.SQLite.DSN) != "" {
		c.SQLiteDSN = strings.TrimSpace(*fc.SQLite.DSN)
	}
	if fc.Session.TTL != nil {
		if ttl, ok := parsePositiveDuration(*fc.Session.TTL); ok {
			c.SessionTTL = ttl
		} else {
			invalid = append(invalid, "session.ttl")
		}
	}
	if fc.Timezone != nil {
		if !c.setTimezone(*fc.Timezone) {
			invalid = append(invalid, "timezone")
		}
	}
	if fc.Reminders.Enabled != nil {
		c.RemindersEnabled = *fc.Reminders.Enabled
	}
	if fc.DrugSearch.URL != nil {
		c.DrugSearchURL = strings.TrimSpace(*fc.DrugSearch.URL)
	}
	if fc.DrugSearch.RequestsPerSecond != nil {
		if *fc.DrugSearch.RequestsPerSecond <= 0 {
			invalid = append(invalid, "drug_search.requests_per_second")
		} else {
			c.DrugSearchRPS = *fc.DrugSearch.RequestsPerSecond
		}
	}
	if fc.Logging.Level != nil {
		if !c.setLogLevel(*fc.Logging.Level) {
			invalid = append(invalid, "logging.level")
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid values in config file %s: %s", path, strings.Join(invalid, ", "))
	}
	return nil
}

func (c *Config) applyEnv() []string {
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv(EnvHTTPPort)); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			c.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvSQLiteDSN)); dsn != "" {
		c.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv(EnvSessionTTL)); ttlValue != "" {
		if ttl, ok := parsePositiveDuration(ttlValue); ok {
			c.SessionTTL = ttl
		} else {
			invalid = append(invalid, EnvSessionTTL)
		}
	}

	if tz := strings.TrimSpace(os.Getenv(EnvTimezone)); tz != "" {
		if !c.setTimezone(tz) {
			invalid = append(invalid, EnvTimezone)
		}
	}

	if enabled := strings.TrimSpace(os.Getenv(EnvRemindersEnabled)); enabled != "" {
		value, err := strconv.ParseBool(enabled)
		if err != nil {
			invalid = append(invalid, EnvRemindersEnabled)
		} else {
			c.RemindersEnabled = value
		}
	}

	if url := strings.TrimSpace(os.Getenv(EnvDrugSearchURL)); url != "" {
		c.DrugSearchURL = url
	}

	if rpsValue := strings.TrimSpace(os.Getenv(EnvDrugSearchRPS)); rpsValue != "" {
		rps, err := strconv.ParseFloat(rpsValue, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, EnvDrugSearchRPS)
		} else {
			c.DrugSearchRPS = rps
		}
	}

	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		if !c.setLogLevel(level) {
			invalid = append(invalid, EnvLogLevel)
		}
	}

	return invalid
}

func (c *Config) setTimezone(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return false
	}
	c.Timezone = name
	c.Location = loc
	return true
}

func (c *Config) setLogLevel(raw string) bool {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return false
	}
	c.LogLevel = level
	return true
}

func parsePositiveDuration(raw string) (time.Duration, bool) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// ErrNoAddress is returned by Address when the port is unset.
var ErrNoAddress = errors.New("config: http port is not set")

// Address returns the listen address for the HTTP server.
func (c Config) Address() (string, error) {
	if c.HTTPPort <= 0 {
		return "", ErrNoAddress
	}
	return fmt.Sprintf(":%d", c.HTTPPort), nil
}
