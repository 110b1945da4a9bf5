package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/org-hierarchy/pkg/logging"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type AWSOptions struct {
	Profile     string `env:"AWS_PROFILE"`
	Region      string `env:"AWS_REGION" envDefault:"us-east-1"`
	MaxAttempts int    `env:"ORG_API_MAX_ATTEMPTS" envDefault:"3"`
	// Client-side request budget against the Organizations API; 0 disables the limiter.
	RequestsPerSecond float64 `env:"ORG_API_RPS" envDefault:"0"`
	PageSize          int32   `env:"ORG_API_PAGE_SIZE" envDefault:"20"`
}

func (a *AWSOptions) Validate() error {
	if a.MaxAttempts < 1 {
		return fmt.Errorf("ORG_API_MAX_ATTEMPTS must be at least 1, got %d", a.MaxAttempts)
	}
	if a.RequestsPerSecond < 0 {
		return fmt.Errorf("ORG_API_RPS must be non-negative, got %v", a.RequestsPerSecond)
	}
	// ListChildren accepts 1..20 results per page.
	if a.PageSize < 1 || a.PageSize > 20 {
		return fmt.Errorf("ORG_API_PAGE_SIZE must be within 1..20, got %d", a.PageSize)
	}
	return nil
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"org_hierarchy"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"org-hierarchy"`
}

type PrometheusOptions struct {
	// Textfile collector target written after each run; empty disables it.
	TextfilePath string `env:"PROMETHEUS_TEXTFILE_PATH"`
}

type Configuration struct {
	AWS           AWSOptions
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPath        string        `env:"LOG_PATH"`
	ExportTimeout  time.Duration `env:"ORG_EXPORT_TIMEOUT" envDefault:"30m"`
	NameCache      bool          `env:"ORG_NAME_CACHE_ENABLED" envDefault:"false"`
	DefaultFormat  string        `env:"ORG_EXPORT_FORMAT" envDefault:"csv"`
	SnapshotsTable string        `env:"ORG_SNAPSHOT_TABLE" envDefault:"org_hierarchy_snapshots"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.LogLevel)
}

func Use() *Configuration {
	return singleton()
}

// Load builds a fresh configuration from the given env files and the process
// environment. Most callers want Use().
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.AWS.Validate(); err != nil {
		return fmt.Errorf("aws configuration error: %w", err)
	}
	if err := c.validateExport(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validateExport() error {
	format := strings.ToLower(strings.TrimSpace(c.DefaultFormat))
	if format == "" {
		format = "csv"
	}
	switch format {
	case "csv", "jsonl", "yaml", "xlsx", "postgres":
	default:
		return fmt.Errorf("invalid ORG_EXPORT_FORMAT=%q (expected csv|jsonl|yaml|xlsx|postgres)", c.DefaultFormat)
	}
	c.DefaultFormat = format

	table := strings.TrimSpace(c.SnapshotsTable)
	if table == "" {
		return fmt.Errorf("ORG_SNAPSHOT_TABLE must not be empty")
	}
	for _, r := range table {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("invalid ORG_SNAPSHOT_TABLE=%q (lower-case identifier expected)", c.SnapshotsTable)
		}
	}
	c.SnapshotsTable = table

	if c.ExportTimeout < 0 {
		return fmt.Errorf("ORG_EXPORT_TIMEOUT must be non-negative, got %s", c.ExportTimeout)
	}
	return nil
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
