package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Providers  []ProviderConfig `json:"providers"`
	Database   DatabaseConfig   `json:"database"`
	Embedding  EmbeddingConfig  `json:"embedding"`
	Recall     RecallConfig     `json:"recall"`
	Extraction ExtractionConfig `json:"extraction"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
	Qdrant   QdrantConfig   `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type EmbeddingConfig struct {
	Provider  string `json:"provider"` // "api" or "local"
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

// RecallConfig controls the auxiliary vector stores.
type RecallConfig struct {
	FastEnabled       bool   `json:"fast_enabled"`
	DurableEnabled    bool   `json:"durable_enabled"`
	DurableCollection string `json:"durable_collection"`
}

// ExtractionConfig controls the batch job and the live extractor.
type ExtractionConfig struct {
	SourceTag        string `json:"source_tag"`
	AgentID          string `json:"agent_id"`
	BatchSize        int    `json:"batch_size"`
	IntervalMinutes  int    `json:"interval_minutes"`
	MinExchangeChars int    `json:"min_exchange_chars"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Extraction.SourceTag == "" {
		c.Extraction.SourceTag = "session"
	}
	if c.Extraction.AgentID == "" {
		c.Extraction.AgentID = "mnemo-extractor"
	}
	if c.Extraction.BatchSize <= 0 {
		c.Extraction.BatchSize = 20
	}
	if c.Extraction.MinExchangeChars <= 0 {
		c.Extraction.MinExchangeChars = 150
	}
	if c.Recall.DurableCollection == "" {
		c.Recall.DurableCollection = "memories"
	}
}
