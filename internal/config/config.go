package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config represents the application configuration
type Config struct {
	Strava  StravaConfig  `json:"strava"`
	Fetch   FetchConfig   `json:"fetch"`
	Storage StorageConfig `json:"storage"`
	Server  ServerConfig  `json:"server"`
	Display DisplayConfig `json:"display"`
}

// StravaConfig holds Strava API credentials and endpoints
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	TokenURL     string `json:"token_url,omitempty" validate:"omitempty,url"`
	APIBaseURL   string `json:"api_base_url,omitempty" validate:"omitempty,url"`
}

// FetchConfig bounds pagination and request time
type FetchConfig struct {
	PerPage        int `json:"per_page" validate:"min=1,max=200"`
	MaxPages       int `json:"max_pages" validate:"min=1,max=50"`
	TimeoutSeconds int `json:"timeout_seconds" validate:"min=1,max=300"`
}

// StorageConfig holds file locations
type StorageConfig struct {
	DataDir string `json:"data_dir" validate:"required"`
	CSVName string `json:"csv_name" validate:"required"`
	DBName  string `json:"db_name" validate:"required"`
	LogsDir string `json:"logs_dir,omitempty"`
}

// ServerConfig holds HTTP dashboard settings
type ServerConfig struct {
	ListenAddr string `json:"listen_addr" validate:"required"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	Locale string `json:"locale" validate:"oneof=en pt"`
}

// Environment variables overriding file values
const (
	EnvConfigPath   = "STRAVA_DASHBOARD_CONFIG"
	EnvClientID     = "STRAVA_CLIENT_ID"
	EnvClientSecret = "STRAVA_CLIENT_SECRET"
	EnvRefreshToken = "STRAVA_REFRESH_TOKEN"
	EnvPerPage      = "STRAVA_PER_PAGE"
	EnvMaxPages     = "STRAVA_MAX_PAGES"
	EnvDataDir      = "DATA_DIR"
	EnvListenAddr   = "LISTEN_ADDR"
	EnvLogsFolder   = "LOGS_FOLDER"
)

const (
	placeholderClientID     = "YOUR_CLIENT_ID"
	placeholderClientSecret = "YOUR_CLIENT_SECRET"
	placeholderRefreshToken = "YOUR_REFRESH_TOKEN"
)

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

var validate = validator.New()

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			PerPage:        50,
			MaxPages:       20,
			TimeoutSeconds: 15,
		},
		Storage: StorageConfig{
			DataDir: "data",
			CSVName: "activities.csv",
			DBName:  "runs.db",
		},
		Server: ServerConfig{
			ListenAddr: ":8050",
		},
		Display: DisplayConfig{
			Locale: "en",
		},
	}
}

// Load reads the configuration file at path; an empty path means DefaultPath
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Resolve builds the effective configuration: .env files, then the config
// file if present, then environment variables on top.
func Resolve(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables")
	}
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg, err := Load(path)
	if errors.Is(err, ErrNoConfig) {
		log.Debug().Str("path", path).Msg("No config file, using defaults")
		d := DefaultConfig()
		cfg = &d
	} else if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides values with any environment variables that are set
func (c *Config) ApplyEnv() {
	c.Strava.ClientID = getEnv(EnvClientID, c.Strava.ClientID)
	c.Strava.ClientSecret = getEnv(EnvClientSecret, c.Strava.ClientSecret)
	c.Strava.RefreshToken = getEnv(EnvRefreshToken, c.Strava.RefreshToken)
	c.Fetch.PerPage = getEnvInt(EnvPerPage, c.Fetch.PerPage)
	c.Fetch.MaxPages = getEnvInt(EnvMaxPages, c.Fetch.MaxPages)
	c.Storage.DataDir = getEnv(EnvDataDir, c.Storage.DataDir)
	c.Storage.LogsDir = getEnv(EnvLogsFolder, c.Storage.LogsDir)
	c.Server.ListenAddr = getEnv(EnvListenAddr, c.Server.ListenAddr)
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Fetch.PerPage == 0 {
		c.Fetch.PerPage = defaults.Fetch.PerPage
	}
	if c.Fetch.MaxPages == 0 {
		c.Fetch.MaxPages = defaults.Fetch.MaxPages
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = defaults.Fetch.TimeoutSeconds
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = defaults.Storage.DataDir
	}
	if c.Storage.CSVName == "" {
		c.Storage.CSVName = defaults.Storage.CSVName
	}
	if c.Storage.DBName == "" {
		c.Storage.DBName = defaults.Storage.DBName
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaults.Server.ListenAddr
	}
	if c.Display.Locale == "" {
		c.Display.Locale = defaults.Display.Locale
	}
}

// Save writes the configuration to path; an empty path means DefaultPath
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample(path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     placeholderClientID,
		ClientSecret: placeholderClientSecret,
		RefreshToken: placeholderRefreshToken,
	}

	return Save(&example, path)
}

// Validate checks value ranges and formats. Credentials are checked
// separately since only commands that call Strava need them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// ValidateCredentials checks that the Strava client credentials are set
func (c *Config) ValidateCredentials(needRefreshToken bool) error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == placeholderClientID {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == placeholderClientSecret {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	if needRefreshToken && (c.Strava.RefreshToken == "" || c.Strava.RefreshToken == placeholderRefreshToken) {
		return errors.New("strava.refresh_token is required - run `strava-dashboard login` or set " + EnvRefreshToken)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := jsonPath(fe.Namespace())
	switch fe.Tag() {
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", field, map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

var jsonNames = map[string]string{
	"Strava": "strava", "Fetch": "fetch", "Storage": "storage", "Server": "server", "Display": "display",
	"TokenURL": "token_url", "APIBaseURL": "api_base_url",
	"PerPage": "per_page", "MaxPages": "max_pages", "TimeoutSeconds": "timeout_seconds",
	"DataDir": "data_dir", "CSVName": "csv_name", "DBName": "db_name",
	"ListenAddr": "listen_addr", "Locale": "locale",
}

// jsonPath turns "Config.Fetch.PerPage" into "fetch.per_page"
func jsonPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if n, ok := jsonNames[p]; ok {
			parts[i] = n
		}
	}
	return strings.Join(parts, ".")
}

// CSVPath returns the activity table location
func (c *Config) CSVPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.CSVName)
}

// RunLogPath returns the run history database location
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.DBName)
}

// LogsDir returns the log directory
func (c *Config) LogsDir() string {
	if c.Storage.LogsDir != "" {
		return c.Storage.LogsDir
	}
	return filepath.Join(c.Storage.DataDir, "logs")
}

// Timeout returns the per-request network timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// DefaultPath returns the config file location, honouring STRAVA_DASHBOARD_CONFIG
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".strava-dashboard"), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return fallback
}
