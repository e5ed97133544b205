// Package config loads the pipeline settings from the app config file named
// by APP_CONFIG_FILE, with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"face-pipeline/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile    = "config.json"
	DefaultMediaDuration = 30 // seconds
)

// Config holds the pipeline settings. The file may be JSON or YAML.
type Config struct {
	// Job service
	ClientKey        string `yaml:"clientKey"`
	ClientSecret     string `yaml:"clientSecret"`
	ProjectServiceID string `yaml:"projectServiceId"`
	Host             string `yaml:"host"`

	// Object storage
	AWSAccessKeyID     string        `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string        `yaml:"aws_secret_access_key"`
	AWSSessionToken    string        `yaml:"aws_session_token"`
	BucketRegion       string        `yaml:"bucketRegion"`
	BucketName         string        `yaml:"bucketName"`
	S3Endpoint         string        `yaml:"s3Endpoint"`
	SignedURLTTL       time.Duration `yaml:"signedUrlTTL"`

	// Inputs
	LocalPath     string  `yaml:"localPath"`
	InputFile     string  `yaml:"inputFile"`
	InputImage    string  `yaml:"inputImage"`
	Effort        string  `yaml:"effort"`
	MediaDuration float64 `yaml:"mediaDuration"`

	// Polling
	PollInterval time.Duration `yaml:"pollInterval"`
	PollMaxWait  time.Duration `yaml:"pollMaxWait"`
	FetchRetries int           `yaml:"fetchRetries"`
	QueryPolicy  string        `yaml:"queryPolicy"`

	// Optional sinks
	DatabaseURL    string `yaml:"databaseUrl"`
	ValkeyURL      string `yaml:"valkeyUrl"`
	ValkeyPassword string `yaml:"valkeyPassword"`
	OpsAddr        string `yaml:"opsAddr"`
}

// Load reads .env (if present), the file named by APP_CONFIG_FILE and the
// environment overrides, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := LoadFile(getEnv("APP_CONFIG_FILE", DefaultConfigFile))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses path without environment overrides or validation.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file %s: %w", path, err)
	}
	if cfg.MediaDuration == 0 {
		cfg.MediaDuration = DefaultMediaDuration
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Host = getEnv("FACE_HOST", c.Host)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.ValkeyURL = getEnv("VALKEY_URL", c.ValkeyURL)
	c.ValkeyPassword = getEnv("VALKEY_PASSWORD", c.ValkeyPassword)
	c.OpsAddr = getEnv("OPS_ADDR", c.OpsAddr)
	c.S3Endpoint = getEnv("S3_ENDPOINT_URL", c.S3Endpoint)

	var err error
	if c.PollInterval, err = getEnvAsDuration("POLL_INTERVAL", c.PollInterval); err != nil {
		return err
	}
	if c.PollMaxWait, err = getEnvAsDuration("POLL_MAX_WAIT", c.PollMaxWait); err != nil {
		return err
	}
	if c.FetchRetries, err = getEnvAsInt("FETCH_RETRIES", c.FetchRetries); err != nil {
		return err
	}
	return nil
}

// Validate reports every missing required key at once.
func (c *Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"clientKey", c.ClientKey},
		{"clientSecret", c.ClientSecret},
		{"projectServiceId", c.ProjectServiceID},
		{"host", c.Host},
		{"bucketRegion", c.BucketRegion},
		{"bucketName", c.BucketName},
		{"inputFile", c.InputFile},
		{"inputImage", c.InputImage},
	}

	var errs []error
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if c.MediaDuration < 0 {
		errs = append(errs, fmt.Errorf("mediaDuration must be positive, got %v", c.MediaDuration))
	}
	if c.PollInterval < 0 || c.PollMaxWait < 0 || c.SignedURLTTL < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, err := c.EffortLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EffortLevel returns the configured extraction effort, or nil when unset.
func (c *Config) EffortLevel() (*models.Effort, error) {
	if c.Effort == "" {
		return nil, nil
	}
	e, err := models.ParseEffort(c.Effort)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MediaAsset is the video to extract faces from.
func (c *Config) MediaAsset() models.Asset {
	return models.Asset{Path: filepath.Join(c.LocalPath, c.InputFile), Key: c.InputFile}
}

// ProbeAsset is the image searched for in the clustered faces.
func (c *Config) ProbeAsset() models.Asset {
	return models.Asset{Path: filepath.Join(c.LocalPath, c.InputImage), Key: c.InputImage}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
