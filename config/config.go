package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Validation errors returned by Config.Validate.
var (
	ErrInvalidTargetYear   = errors.New("TARGET_YEAR must be a four digit year")
	ErrInvalidNavTimeout   = errors.New("NAV_TIMEOUT_SEC must be at least 1")
	ErrUnknownDriver       = errors.New("BROWSER_DRIVER must be one of: chromedp, rod")
	ErrUnknownStrategy     = errors.New("IDENTITY_STRATEGY must be one of: digest, url")
	ErrUnknownStoreBackend = errors.New("STORE_BACKEND must be one of: sheets, postgres, sqlite, none")
	ErrMissingSpreadsheet  = errors.New("SPREADSHEET_ID is required for the sheets backend")
)

// Store backends.
const (
	StoreSheets   = "sheets"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreNone     = "none"
)

// Config holds all run configuration loaded from environment variables. It is
// created once per run and treated as read-only afterwards.
type Config struct {
	RunID string

	BaseURL    string
	TargetYear int
	MaxPages   int

	SettleDelay time.Duration
	NavTimeout  time.Duration
	RateLimit   time.Duration
	ScrollTimes int
	MaxRetries  int

	Headless      bool
	BrowserDriver string
	ChromeBin     string

	IdentityStrategy string

	StoreBackend          string
	GoogleCredentials     string
	GoogleCredentialsFile string
	SpreadsheetID         string
	SheetName             string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresTable    string

	SQLitePath  string
	SQLiteTable string

	OutputDir      string
	OutputBasename string
	LogFile        string
	Debug          bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		RunID: uuid.NewString(),

		BaseURL:    getEnv("IFB_BASE_URL", "https://www.ifb.ir/Finstars/AllCrowdFundingProject.aspx"),
		TargetYear: getEnvInt("TARGET_YEAR", 1404),
		MaxPages:   getEnvInt("MAX_PAGES", 0),

		SettleDelay: time.Duration(getEnvInt("SETTLE_DELAY_MS", 1500)) * time.Millisecond,
		NavTimeout:  time.Duration(getEnvInt("NAV_TIMEOUT_SEC", 30)) * time.Second,
		RateLimit:   time.Duration(getEnvInt("RATE_LIMIT_MS", 3000)) * time.Millisecond,
		ScrollTimes: getEnvInt("SCROLL_TIMES", 2),
		MaxRetries:  getEnvInt("MAX_RETRIES", 3),

		Headless:      getEnvBool("HEADLESS", true),
		BrowserDriver: strings.ToLower(getEnv("BROWSER_DRIVER", "chromedp")),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		IdentityStrategy: strings.ToLower(getEnv("IDENTITY_STRATEGY", "digest")),

		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", StoreSheets)),
		GoogleCredentials:     getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "service_account.json"),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		SheetName:             getEnv("SHEET_NAME", "Crowdfunding_Projects_1404"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "crowdfunding"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTable:    getEnv("POSTGRES_TABLE", "ifb_projects"),

		SQLitePath:  getEnv("SQLITE_PATH", "./output/ifb_projects.db"),
		SQLiteTable: getEnv("SQLITE_TABLE", "ifb_projects"),

		OutputDir:      getEnv("OUTPUT_DIR", "./output"),
		OutputBasename: getEnv("OUTPUT_BASENAME", "ifb_projects_1404_complete"),
		LogFile:        getEnv("LOG_FILE", "ifb_scraper.log"),
		Debug:          getEnvBool("LOG_DEBUG", false),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.TargetYear < 1000 || c.TargetYear > 9999 {
		return ErrInvalidTargetYear
	}
	if c.NavTimeout < time.Second {
		return ErrInvalidNavTimeout
	}
	switch c.BrowserDriver {
	case "chromedp", "rod":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.BrowserDriver)
	}
	switch c.IdentityStrategy {
	case "digest", "url":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.IdentityStrategy)
	}
	switch c.StoreBackend {
	case StoreSheets, StorePostgres, StoreSQLite, StoreNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreBackend, c.StoreBackend)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
