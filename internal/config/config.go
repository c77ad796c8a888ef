package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	VLM      VLMConfig      `mapstructure:"vlm"`
	Backfill BackfillConfig `mapstructure:"backfill"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	DSNValue        string        `mapstructure:"dsn"`    // postgres connection string
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the driver specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.DSNValue
	}
	if c.DSNValue != "" {
		return c.DSNValue
	}
	return c.Path
}

// StorageConfig describes where uploaded photo files live.
type StorageConfig struct {
	Type       string `mapstructure:"type"` // local, s3, r2, s3compatible
	UploadRoot string `mapstructure:"upload_root"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
}

type VLMConfig struct {
	Provider string        `mapstructure:"provider"` // gemini, openai
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type BackfillConfig struct {
	PageSize    int `mapstructure:"page_size"`
	CommitEvery int `mapstructure:"commit_every"`
}

// AdminConfig is the account created by the lorem command.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment names used by the web application
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("storage.upload_root", "MOMENTS_UPLOAD_PATH")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("vlm.api_key", "GEMINI_API_KEY")
	v.BindEnv("vlm.model", "GEMINI_MODEL")
	v.BindEnv("admin.password", "MOMENTS_ADMIN_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/moments.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.upload_root", "./uploads")
	v.SetDefault("storage.bucket", "moments")
	v.SetDefault("vlm.provider", "gemini")
	v.SetDefault("vlm.model", "gemini-2.5-flash")
	v.SetDefault("vlm.timeout", 60*time.Second)
	v.SetDefault("backfill.page_size", 50)
	v.SetDefault("backfill.commit_every", 50)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.name", "Admin")
	v.SetDefault("admin.email", "admin@moments.local")
	v.SetDefault("admin.password", "moments")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate normalizes derived values and rejects unusable settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSNValue == "" {
		return fmt.Errorf("database: dsn is required for postgres (set DATABASE_URL)")
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.Type == "local" {
		if c.Storage.UploadRoot == "" {
			return fmt.Errorf("storage: upload_root is required for local storage")
		}
		abs, err := filepath.Abs(c.Storage.UploadRoot)
		if err != nil {
			return fmt.Errorf("storage: failed to resolve upload_root %q: %w", c.Storage.UploadRoot, err)
		}
		c.Storage.UploadRoot = abs
	}

	if c.Backfill.PageSize <= 0 {
		c.Backfill.PageSize = 50
	}
	if c.Backfill.CommitEvery <= 0 {
		c.Backfill.CommitEvery = 50
	}
	return nil
}

// ValidateVLM checks the generator settings; only commands that call the
// model need them.
func (c *VLMConfig) ValidateVLM() error {
	switch c.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("vlm: unknown provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("vlm: api_key is required (set GEMINI_API_KEY)")
	}
	if c.Model == "" {
		return fmt.Errorf("vlm: model is required")
	}
	return nil
}
