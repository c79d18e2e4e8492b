package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Matching MatchingConfig `mapstructure:"matching"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
}

type QdrantConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api-key"`
	Collection string `mapstructure:"collection"`
}

type GeminiConfig struct {
	APIKey            string        `mapstructure:"api-key"`
	EmbedModel        string        `mapstructure:"embed-model"`
	Dimensions        int           `mapstructure:"dimensions"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	MaxInFlight       int           `mapstructure:"max-in-flight"`
}

type StorageConfig struct {
	UploadPath  string `mapstructure:"upload-path"`
	MaxFileSize int64  `mapstructure:"max-file-size"`
}

type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	BatchSize    int           `mapstructure:"batch-size"`
}

// MatchingConfig holds per-deployment scoring constants. They are never
// overridden per call.
type MatchingConfig struct {
	RecommendationThreshold float64 `mapstructure:"recommendation-threshold"`
	LocationBonus           float64 `mapstructure:"location-bonus"`
	Concurrency             int     `mapstructure:"concurrency"`
	SearchCandidatePool     int     `mapstructure:"search-candidate-pool"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt-secret"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
	JSON  bool `mapstructure:"json"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":                       "PORT",
	"server.env":                        "ENV",
	"database.host":                     "DB_HOST",
	"database.port":                     "DB_PORT",
	"database.user":                     "DB_USER",
	"database.password":                 "DB_PASSWORD",
	"database.name":                     "DB_NAME",
	"qdrant.url":                        "QDRANT_URL",
	"qdrant.api-key":                    "QDRANT_API_KEY",
	"qdrant.collection":                 "QDRANT_COLLECTION",
	"gemini.api-key":                    "GEMINI_API_KEY",
	"gemini.embed-model":                "GEMINI_EMBED_MODEL",
	"gemini.dimensions":                 "GEMINI_EMBED_DIMENSIONS",
	"gemini.timeout":                    "GEMINI_TIMEOUT",
	"gemini.requests-per-second":        "GEMINI_REQUESTS_PER_SECOND",
	"gemini.max-in-flight":              "GEMINI_MAX_IN_FLIGHT",
	"storage.upload-path":               "UPLOAD_PATH",
	"storage.max-file-size":             "MAX_FILE_SIZE",
	"worker.concurrency":                "WORKER_CONCURRENCY",
	"worker.poll-interval":              "WORKER_POLL_INTERVAL",
	"worker.batch-size":                 "WORKER_BATCH_SIZE",
	"matching.recommendation-threshold": "MATCH_RECOMMENDATION_THRESHOLD",
	"matching.location-bonus":           "MATCH_LOCATION_BONUS",
	"matching.concurrency":              "MATCH_CONCURRENCY",
	"matching.search-candidate-pool":    "MATCH_SEARCH_CANDIDATE_POOL",
	"auth.jwt-secret":                   "JWT_SECRET",
	"log.debug":                         "LOG_DEBUG",
	"log.json":                          "LOG_JSON",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "talent_matcher")

	v.SetDefault("qdrant.url", "http://localhost:6334")
	v.SetDefault("qdrant.api-key", "")
	v.SetDefault("qdrant.collection", "talent_profiles")

	v.SetDefault("gemini.api-key", "")
	v.SetDefault("gemini.embed-model", "gemini-embedding-001")
	v.SetDefault("gemini.dimensions", 3072)
	v.SetDefault("gemini.timeout", "10s")
	v.SetDefault("gemini.requests-per-second", 5.0)
	v.SetDefault("gemini.max-in-flight", 4)

	v.SetDefault("storage.upload-path", "./uploads")
	v.SetDefault("storage.max-file-size", 10485760)

	v.SetDefault("worker.concurrency", 3)
	v.SetDefault("worker.poll-interval", "10s")
	v.SetDefault("worker.batch-size", 10)

	v.SetDefault("matching.recommendation-threshold", 70.0)
	v.SetDefault("matching.location-bonus", 10.0)
	v.SetDefault("matching.concurrency", 8)
	v.SetDefault("matching.search-candidate-pool", 100)

	v.SetDefault("auth.jwt-secret", "")

	v.SetDefault("log.debug", false)
	v.SetDefault("log.json", false)
}

// Load resolves configuration from defaults, an optional config file and the
// environment (a .env file in the working directory is loaded first).
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// A missing .env is fine, the process environment still applies.
	_ = godotenv.Load()

	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Gemini.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("gemini.dimensions must be positive, got %d", c.Gemini.Dimensions))
	}
	if c.Matching.RecommendationThreshold < 0 || c.Matching.RecommendationThreshold > 100 {
		errs = append(errs, fmt.Errorf("matching.recommendation-threshold must be within [0,100], got %v", c.Matching.RecommendationThreshold))
	}
	if c.Matching.LocationBonus < 0 {
		errs = append(errs, fmt.Errorf("matching.location-bonus must not be negative, got %v", c.Matching.LocationBonus))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency))
	}

	return errors.Join(errs...)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}
