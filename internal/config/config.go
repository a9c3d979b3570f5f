package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"studymill-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Base URL of the PDF text extraction service.
	ExtractorURL string `envconfig:"EXTRACTOR_URL" default:"http://localhost:9090"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Ingestion tuning knobs.
	WriteBatchSize      int     `envconfig:"WRITE_BATCH_SIZE" default:"20"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.3"`
	MaxBodyBytes        int64   `envconfig:"MAX_BODY_BYTES" default:"52428800"`

	// Embedding worker poll interval in seconds; 0 disables the worker.
	WorkerPollSeconds int `envconfig:"WORKER_POLL_SECONDS" default:"15"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("STUDYMILL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
