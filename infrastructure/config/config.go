package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Option store backends.
const (
	BackendLocal   = "local"
	BackendCentral = "central"
)

// Config is the runtime configuration of the service.
type Config struct {
	Addr       string `mapstructure:"APP_ADDR"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// MigrationsDir overrides the embedded migrations when set.
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	BadgerPath    string `mapstructure:"BADGER_PATH"`

	StorageBackend    string `mapstructure:"STORAGE_BACKEND"`
	StorageLocalDir   string `mapstructure:"STORAGE_LOCAL_DIR"`
	PublicBaseURL     string `mapstructure:"PUBLIC_BASE_URL"`
	GCSBucket         string `mapstructure:"GCS_BUCKET"`
	PhotoCollection   string `mapstructure:"PHOTO_COLLECTION"`
	UploadConcurrency int    `mapstructure:"UPLOAD_CONCURRENCY"`

	EmailEndpointURL  string        `mapstructure:"EMAIL_ENDPOINT_URL"`
	HTTPClientTimeout time.Duration `mapstructure:"HTTP_CLIENT_TIMEOUT"`
	SMTPHost          string        `mapstructure:"SMTP_HOST"`
	SMTPPort          int           `mapstructure:"SMTP_PORT"`
	SMTPUsername      string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword      string        `mapstructure:"SMTP_PASSWORD"`
	MailFrom          string        `mapstructure:"MAIL_FROM"`
	MailFromName      string        `mapstructure:"MAIL_FROM_NAME"`

	// OptionBackends is a comma separated kind=backend list, e.g. "customer=central,inspector=local".
	OptionBackends string `mapstructure:"OPTION_BACKENDS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"APP_ADDR":            ":8080",
	"SQLITE_PATH":         "qcinspect.db",
	"MIGRATIONS_DIR":      "",
	"BADGER_PATH":         "data/station",
	"STORAGE_BACKEND":     "local",
	"STORAGE_LOCAL_DIR":   "uploads",
	"PUBLIC_BASE_URL":     "http://localhost:8080",
	"GCS_BUCKET":          "",
	"PHOTO_COLLECTION":    "final-inspection-images",
	"UPLOAD_CONCURRENCY":  1,
	"EMAIL_ENDPOINT_URL":  "http://localhost:8080/api/send-email",
	"HTTP_CLIENT_TIMEOUT": 30 * time.Second,
	"SMTP_HOST":           "localhost",
	"SMTP_PORT":           587,
	"SMTP_USERNAME":       "",
	"SMTP_PASSWORD":       "",
	"MAIL_FROM":           "automations@easternmills.com",
	"MAIL_FROM_NAME":      "Eastern Mills QC",
	"OPTION_BACKENDS":     "customer=central",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "console",
}

// Load reads an optional .env file, then environment variables over defaults.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case "local":
		if strings.TrimSpace(c.StorageLocalDir) == "" {
			return fmt.Errorf("STORAGE_LOCAL_DIR is required for local storage")
		}
	case "gcs":
		if strings.TrimSpace(c.GCSBucket) == "" {
			return fmt.Errorf("GCS_BUCKET is required for gcs storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.UploadConcurrency < 1 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1")
	}
	if _, err := ParseOptionBackends(c.OptionBackends); err != nil {
		return err
	}
	return nil
}

// ParseOptionBackends parses OPTION_BACKENDS into a kind to backend map.
func ParseOptionBackends(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kind, backend, ok := strings.Cut(pair, "=")
		kind = strings.TrimSpace(kind)
		backend = strings.ToLower(strings.TrimSpace(backend))
		if !ok || kind == "" {
			return nil, fmt.Errorf("invalid OPTION_BACKENDS entry %q", pair)
		}
		if backend != BackendLocal && backend != BackendCentral {
			return nil, fmt.Errorf("unknown option backend %q for %s", backend, kind)
		}
		out[kind] = backend
	}
	return out, nil
}
