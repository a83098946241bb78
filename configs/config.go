package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StorageDriverLocal = "local"
	StorageDriverR2    = "r2"

	DispatchModeInline = "inline"
	DispatchModeQueue  = "queue"

	// PublishSlack is the time allowed after the publish call to record its
	// outcome.
	PublishSlack = time.Minute
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	Endpoint   string
}

type Scheduler struct {
	Spec        string
	BatchSize   int
	Concurrency int
	ClaimLease  time.Duration
}

type Config struct {
	Port            string
	PostgresURI     string
	RedisURI        string
	FrontendURL     string
	SecretKey       string
	TokenIssuer     string
	SessionTTL      time.Duration
	CookieName      string
	EncryptionKey   string
	StorageDriver   string
	UploadDir       string
	MaxUploadBytes  int64
	GraphAPIURL     string
	PublishTimeout  time.Duration
	GraphRatePerSec float64
	DispatchMode    string
	R2              R2
	Scheduler       Scheduler
}

func LoadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "3000"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:       getEnv("SECRET_KEY", ""),
		TokenIssuer:     getEnv("TOKEN_ISSUER", "reelflow"),
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		CookieName:      getEnv("COOKIE_NAME", "reelflow_session"),
		EncryptionKey:   getEnv("ENCRYPTION_KEY", ""),
		StorageDriver:   getEnv("STORAGE_DRIVER", StorageDriverLocal),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 100*1024*1024),
		GraphAPIURL:     getEnv("GRAPH_API_URL", "https://graph.facebook.com/v18.0"),
		PublishTimeout:  getEnvDuration("PUBLISH_TIMEOUT", 5*time.Minute),
		GraphRatePerSec: getEnvFloat("GRAPH_RATE_PER_SEC", 5),
		DispatchMode:    getEnv("DISPATCH_MODE", DispatchModeInline),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			Endpoint:   getEnv("R2_ENDPOINT", ""),
		},
		Scheduler: Scheduler{
			Spec:        getEnv("SCHEDULER_SPEC", "@every 1m"),
			BatchSize:   int(getEnvInt64("SCHEDULER_BATCH", 25)),
			Concurrency: int(getEnvInt64("SCHEDULER_CONCURRENCY", 5)),
			ClaimLease:  getEnvDuration("CLAIM_LEASE", 30*time.Minute),
		},
	}
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI is required"))
	}
	if c.EncryptionKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}

	switch c.StorageDriver {
	case StorageDriverLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for the local storage driver"))
		}
	case StorageDriverR2:
		if c.R2.BucketName == "" || c.R2.AccessKey == "" || c.R2.SecretKey == "" {
			errs = append(errs, errors.New("R2_BUCKET_NAME, R2_ACCESS_KEY and R2_SECRET_KEY are required for the r2 storage driver"))
		}
		if c.R2.AccountID == "" && c.R2.Endpoint == "" {
			errs = append(errs, errors.New("R2_ACCOUNT_ID or R2_ENDPOINT is required for the r2 storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.DispatchMode {
	case DispatchModeInline, DispatchModeQueue:
	default:
		errs = append(errs, fmt.Errorf("unknown DISPATCH_MODE %q", c.DispatchMode))
	}

	if c.Scheduler.BatchSize <= 0 || c.Scheduler.Concurrency <= 0 {
		errs = append(errs, errors.New("SCHEDULER_BATCH and SCHEDULER_CONCURRENCY must be positive"))
	}

	// A claim renewed right before the publish call must outlive that call.
	if c.Scheduler.ClaimLease <= c.PublishTimeout+PublishSlack {
		errs = append(errs, fmt.Errorf("CLAIM_LEASE (%s) must exceed PUBLISH_TIMEOUT (%s) plus %s",
			c.Scheduler.ClaimLease, c.PublishTimeout, PublishSlack))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
