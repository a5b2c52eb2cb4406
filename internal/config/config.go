package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDocumentURL  = "https://tymp.mncdn.com/prod/documents/engagement/kargo/guncel_kargo_fiyatlari.pdf"
	DefaultDocumentPath = "data/guncel_kargo_fiyatlari.pdf"
	DefaultSnapshotPath = "data/shipping_costs.json"
	DefaultDBPath       = "data/shipping_costs.db"
	DefaultTimezone     = "Europe/Istanbul"
	DefaultRowLimit     = 101
)

type Config struct {
	// BaseDir anchors every relative path below.
	BaseDir string

	DocumentURL  string
	DocumentPath string
	SnapshotPath string

	DBDriver string
	DBDSN    string

	RowLimit    int
	Timezone    string
	HTTPTimeout time.Duration

	// Schedule is either an integer number of seconds or a cron expression.
	Schedule string
	Port     string

	Env      string
	LogLevel string

	Alert  AlertConfig
	Notify NotifyConfig
	S3     S3Config
}

type AlertConfig struct {
	WebhookURL  string
	WebhookType string
}

type NotifyConfig struct {
	SendgridAPIKey string
	From           string
	To             string
}

type S3Config struct {
	Bucket    string
	Key       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// FromEnv builds a Config from environment variables, with sane defaults.
// A .env file in the working directory is loaded first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		BaseDir:      getEnv("SHIPRATE_BASE_DIR", "."),
		DocumentURL:  getEnv("SHIPRATE_DOCUMENT_URL", DefaultDocumentURL),
		DocumentPath: getEnv("SHIPRATE_DOCUMENT_PATH", DefaultDocumentPath),
		SnapshotPath: getEnv("SHIPRATE_SNAPSHOT_PATH", DefaultSnapshotPath),
		DBDriver:     getEnv("SHIPRATE_DB_DRIVER", "sqlite"),
		DBDSN:        os.Getenv("SHIPRATE_DB_DSN"),
		RowLimit:     getIntEnv("SHIPRATE_ROW_LIMIT", DefaultRowLimit),
		Timezone:     getEnv("SHIPRATE_TIMEZONE", DefaultTimezone),
		HTTPTimeout:  time.Duration(getIntEnv("SHIPRATE_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		Schedule:     getEnv("SHIPRATE_SCHEDULE", "@every 1h"),
		Port:         getEnv("PORT", "8000"),
		Env:          getEnv("APP_ENV", "production"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Alert: AlertConfig{
			WebhookURL:  os.Getenv("ALERT_WEBHOOK_URL"),
			WebhookType: os.Getenv("ALERT_WEBHOOK_TYPE"),
		},
		Notify: NotifyConfig{
			SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			From:           os.Getenv("NOTIFY_FROM"),
			To:             os.Getenv("NOTIFY_TO"),
		},
		S3: S3Config{
			Bucket:    os.Getenv("SNAPSHOT_S3_BUCKET"),
			Key:       getEnv("SNAPSHOT_S3_KEY", "shipping_costs.json"),
			Endpoint:  os.Getenv("SNAPSHOT_S3_ENDPOINT"),
			Region:    getEnv("SNAPSHOT_S3_REGION", "auto"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
	}
	if cfg.DBDSN == "" && isFileDriver(cfg.DBDriver) {
		cfg.DBDSN = DefaultDBPath
	}
	return cfg
}

// Resolve joins a relative path onto BaseDir. Absolute paths are returned as is.
func (c Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// ResolvedDSN returns the DSN with file-backed drivers anchored at BaseDir.
func (c Config) ResolvedDSN() string {
	if !isFileDriver(c.DBDriver) || c.DBDSN == ":memory:" || strings.HasPrefix(c.DBDSN, "file:") {
		return c.DBDSN
	}
	return c.Resolve(c.DBDSN)
}

func isFileDriver(driver string) bool {
	return driver == "" || driver == "sqlite" || driver == "gorm-sqlite"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
