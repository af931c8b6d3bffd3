package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pcos-screening-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files
	DBPath  string // SQLite file; defaults to DataDir/screenings.db

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Narrative settings; an empty base URL selects the offline template
	NarrativeBaseURL string
	NarrativeAPIKey  string
	NarrativeModel   string

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pcos-screen")

	return &LiteConfig{
		DataDir:        dataDir,
		CacheMaxItems:  1000,
		CacheTTL:       24 * time.Hour,
		NarrativeModel: "llama-3.1-8b-instant",
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("PCOS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PCOS_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if v := os.Getenv("PCOS_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("PCOS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	cfg.NarrativeBaseURL = os.Getenv("PCOS_NARRATIVE_BASE_URL")
	cfg.NarrativeAPIKey = os.Getenv("PCOS_NARRATIVE_API_KEY")
	if v := os.Getenv("PCOS_NARRATIVE_MODEL"); v != "" {
		cfg.NarrativeModel = v
	}

	if v := os.Getenv("PCOS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PCOS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ScreeningDBPath returns the path to the screening SQLite database.
func (c *LiteConfig) ScreeningDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "screenings.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// Logging returns the logging section for NewLogger. Lite servers speak MCP
// over stdout, so logs always go to stderr.
func (c *LiteConfig) Logging() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}

// Narrative returns the narrative section for narrative.NewFromConfig.
func (c *LiteConfig) Narrative() domain.NarrativeConfig {
	return domain.NarrativeConfig{
		BaseURL:        c.NarrativeBaseURL,
		APIKey:         c.NarrativeAPIKey,
		Model:          c.NarrativeModel,
		Timeout:        10 * time.Second,
		RateLimit:      2,
		MaxTokens:      400,
		BreakerTimeout: time.Minute,
	}
}
