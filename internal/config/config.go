package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	LLM      LLMConfig      `yaml:"llm"`
	AWS      AWSConfig      `yaml:"aws"`
	Importer ImporterConfig `yaml:"importer"`
	Auth     AuthConfig     `yaml:"auth"`
	Briefing BriefingConfig `yaml:"briefing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Type        string `yaml:"type"` // "memory", "postgres" or "redis"
	DatabaseURL string `yaml:"database_url"`
	Table       string `yaml:"table"`
}

// RedisConfig holds Redis connection settings. Redis backs the document
// store when store.type is "redis", and the insight cache and upload lock
// whenever an address is configured.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

// CacheTTL returns the insight cache TTL as a duration
func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// LLMConfig holds text-generation provider settings.
// The API key is never read from the YAML file in production deployments;
// set GEMINI_API_KEY instead.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // "gemini" or "bedrock"
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
	BedrockModelID string `yaml:"bedrock_model_id"`
	AWSRegion      string `yaml:"aws_region"`
	// Language is the language insights are written in.
	Language string `yaml:"language"`
}

// Timeout returns the configured timeout as a duration
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AWSConfig holds S3 archive and DynamoDB import log settings.
type AWSConfig struct {
	Region         string `yaml:"region"`
	Profile        string `yaml:"profile"` // Empty string uses default credential chain (IAM role on ECS)
	ArchiveBucket  string `yaml:"archive_bucket"`
	ImportLogTable string `yaml:"import_log_table"`
}

// GetProfile returns the AWS profile, with environment variable override
func (c AWSConfig) GetProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.Profile
}

// ImporterConfig holds spreadsheet import settings.
type ImporterConfig struct {
	ChunkSize          int      `yaml:"chunk_size"`
	DuvetAliasPrefixes []string `yaml:"duvet_alias_prefixes"`
	PreviewLimit       int      `yaml:"preview_limit"`
	LockTTLMinutes     int      `yaml:"lock_ttl_minutes"`
}

// LockTTL returns the upload lock TTL as a duration
func (c ImporterConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// AuthConfig holds Google OAuth authentication configuration
type AuthConfig struct {
	Enabled            bool   `yaml:"enabled"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	RedirectURL        string `yaml:"redirect_url"`
	AllowedDomain      string `yaml:"allowed_domain"`
	SessionSecret      string `yaml:"session_secret"`
	CookieName         string `yaml:"cookie_name"`
	CookieMaxAge       int    `yaml:"cookie_max_age"`
}

// BriefingConfig controls the scheduled daily briefing.
type BriefingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, for
// deployments that run entirely from environment variables.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = "documents"
	}
	if cfg.Redis.CacheTTLMinutes == 0 {
		cfg.Redis.CacheTTLMinutes = 60
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-1.5-flash"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 30
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 3
	}
	if cfg.LLM.BedrockModelID == "" {
		cfg.LLM.BedrockModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	if cfg.LLM.Language == "" {
		cfg.LLM.Language = "Arabic"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.LLM.AWSRegion == "" {
		cfg.LLM.AWSRegion = cfg.AWS.Region
	}
	if cfg.Importer.ChunkSize == 0 {
		cfg.Importer.ChunkSize = 400
	}
	if len(cfg.Importer.DuvetAliasPrefixes) == 0 {
		cfg.Importer.DuvetAliasPrefixes = []string{"4"}
	}
	if cfg.Importer.PreviewLimit == 0 {
		cfg.Importer.PreviewLimit = 10
	}
	if cfg.Importer.LockTTLMinutes == 0 {
		cfg.Importer.LockTTLMinutes = 15
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "cockpit_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 86400 * 7
	}
	if cfg.Briefing.Schedule == "" {
		cfg.Briefing.Schedule = "0 6 * * *"
	}
	if cfg.Briefing.Timezone == "" {
		cfg.Briefing.Timezone = "Asia/Riyadh"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// A missing config file is not an error here; defaults are used instead.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Store overrides
	if v := os.Getenv("STORE_TYPE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
		if cfg.Store.Type == "memory" {
			cfg.Store.Type = "postgres"
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// LLM overrides
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.LLM.BedrockModelID = v
	}
	if v := os.Getenv("LLM_LANGUAGE"); v != "" {
		cfg.LLM.Language = v
	}

	// AWS overrides
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.AWS.ArchiveBucket = v
	}
	if v := os.Getenv("IMPORT_LOG_TABLE"); v != "" {
		cfg.AWS.ImportLogTable = v
	}

	// Auth overrides
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("AUTH_ALLOWED_DOMAIN"); v != "" {
		cfg.Auth.AllowedDomain = v
	}

	return cfg, nil
}
