package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/spf13/viper"
)

// Supported P&L sign conventions.
const (
	SignConventionLedger   = "ledger"
	SignConventionPositive = "positive"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Data      DataConfig
	Sheets    SheetsConfig
	Cache     CacheConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
// The database is an optional dataset source and is only dialled when Enabled.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
	// Tables maps dataset names to (optionally schema-qualified) table names.
	Tables map[string]string
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// DataConfig locates the local dataset files.
type DataConfig struct {
	Dir string
	// Files maps dataset names to file names inside Dir.
	// Unmapped datasets are looked up as <name>.csv.
	Files map[string]string
}

// SheetRef identifies one worksheet of a Google spreadsheet.
type SheetRef struct {
	SheetID   string `mapstructure:"sheet_id"`
	Worksheet string `mapstructure:"worksheet"`
}

// SheetsConfig holds the optional Google Sheets source configuration.
type SheetsConfig struct {
	CredentialsFile string
	CredentialsJSON string
	Datasets        map[string]SheetRef
}

// HasCredentials reports whether any service-account credentials are configured.
func (s SheetsConfig) HasCredentials() bool {
	return s.CredentialsFile != "" || s.CredentialsJSON != ""
}

// CacheConfig holds dataset cache settings.
type CacheConfig struct {
	TTL time.Duration
}

// ReportingConfig holds statement presentation settings.
type ReportingConfig struct {
	Currency       string
	SignConvention string
}

// Load reads configuration from environment variables and, when CONFIG_FILE
// is set, from that YAML/JSON/TOML file. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "finance")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("PNL_SIGN_CONVENTION", SignConventionLedger)

	// Bind environment variables
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var sheetRefs map[string]SheetRef
	if err := v.UnmarshalKey("sheets.datasets", &sheetRefs); err != nil {
		return nil, fmt.Errorf("failed to parse sheets.datasets: %w", err)
	}

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
			Tables:   v.GetStringMapString("database.tables"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Data: DataConfig{
			Dir:   v.GetString("DATA_DIR"),
			Files: v.GetStringMapString("datasets.files"),
		},
		Sheets: SheetsConfig{
			CredentialsFile: v.GetString("GOOGLE_SHEETS_CREDENTIALS_FILE"),
			CredentialsJSON: v.GetString("GOOGLE_SHEETS_CREDENTIALS_JSON"),
			Datasets:        sheetRefs,
		},
		Cache: CacheConfig{
			TTL: v.GetDuration("CACHE_TTL"),
		},
		Reporting: ReportingConfig{
			Currency:       strings.ToUpper(v.GetString("CURRENCY")),
			SignConvention: strings.ToLower(v.GetString("PNL_SIGN_CONVENTION")),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config only when the SQL source is switched on
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Port == "" {
			return fmt.Errorf("DB_PORT is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
		if c.Database.PoolMin < 0 {
			return fmt.Errorf("DB_POOL_MIN must be non-negative")
		}
		if c.Database.PoolMax < 1 {
			return fmt.Errorf("DB_POOL_MAX must be at least 1")
		}
		if c.Database.PoolMin > c.Database.PoolMax {
			return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
		}
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate data and cache config
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	// Validate reporting config
	if money.GetCurrency(c.Reporting.Currency) == nil {
		return fmt.Errorf("CURRENCY %q is not a known ISO 4217 code", c.Reporting.Currency)
	}
	switch c.Reporting.SignConvention {
	case SignConventionLedger, SignConventionPositive:
	default:
		return fmt.Errorf("PNL_SIGN_CONVENTION must be %q or %q", SignConventionLedger, SignConventionPositive)
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
