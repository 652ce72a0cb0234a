package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Embedding   EmbeddingConfig
	Database    DatabaseConfig
	Recognition RecognitionConfig
	Web         WebConfig
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8001
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RecognitionConfig struct {
	Threshold            float64 // minimum cosine similarity to accept a match
	AmbiguityMargin      float64 // gap under which two above-threshold matches are ambiguous (0 disables)
	RebuildRatio         float64 // tombstone ratio that triggers an index compaction
	MaxImagesPerIdentity int     // cap on enrollment photos per employee
}

type WebConfig struct {
	Port int // defaults to 8080
}

// defaults mirrors the embedded defaults.yaml.
type defaults struct {
	Recognition struct {
		Threshold             float64 `yaml:"threshold"`
		AmbiguityMargin       float64 `yaml:"ambiguity_margin"`
		RebuildTombstoneRatio float64 `yaml:"rebuild_tombstone_ratio"`
		MaxImagesPerIdentity  int     `yaml:"max_images_per_identity"`
	} `yaml:"recognition"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative
// float. Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Recognition: RecognitionConfig{
			Threshold:            envFloat("RECOGNITION_THRESHOLD", def.Recognition.Threshold),
			AmbiguityMargin:      envFloat("RECOGNITION_AMBIGUITY_MARGIN", def.Recognition.AmbiguityMargin),
			RebuildRatio:         envFloat("INDEX_REBUILD_TOMBSTONE_RATIO", def.Recognition.RebuildTombstoneRatio),
			MaxImagesPerIdentity: envInt("MAX_IMAGES_PER_IDENTITY", def.Recognition.MaxImagesPerIdentity),
		},
		Web: WebConfig{
			Port: envInt("PORT", 8080),
		},
	}
}
