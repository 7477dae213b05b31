// Package config loads and persists the engine's configuration file
// (config.json) and resolves the project root the data directory hangs off.
package config

import "time"

// Config is the complete engine configuration, loadable from config.json
// with environment variable overrides.
type Config struct {
	DataDir   string          `json:"dataDir" mapstructure:"dataDir"`
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`
	Indexing  IndexingConfig  `json:"indexing" mapstructure:"indexing"`
	Search    SearchConfig    `json:"search" mapstructure:"search"`
	Crawl     CrawlConfig     `json:"crawl" mapstructure:"crawl"`
	Server    ServerConfig    `json:"server" mapstructure:"server"`
}

// EmbeddingConfig configures the embedding capability.
type EmbeddingConfig struct {
	Model      string `json:"model" mapstructure:"model"`
	BatchSize  int    `json:"batchSize" mapstructure:"batchSize"`
	Dimensions int    `json:"dimensions" mapstructure:"dimensions"`
}

// IndexingConfig configures the index pipeline.
type IndexingConfig struct {
	Concurrency    int      `json:"concurrency" mapstructure:"concurrency"`
	ChunkSize      int      `json:"chunkSize" mapstructure:"chunkSize"`
	ChunkOverlap   int      `json:"chunkOverlap" mapstructure:"chunkOverlap"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// RRFConfig tunes Reciprocal Rank Fusion.
type RRFConfig struct {
	K            float64 `json:"k" mapstructure:"k"`
	VectorWeight float64 `json:"vectorWeight" mapstructure:"vectorWeight"`
	FTSWeight    float64 `json:"ftsWeight" mapstructure:"ftsWeight"`
}

// SearchConfig configures query-time defaults.
type SearchConfig struct {
	DefaultMode  string    `json:"defaultMode" mapstructure:"defaultMode"`
	DefaultLimit int       `json:"defaultLimit" mapstructure:"defaultLimit"`
	MinScore     float64   `json:"minScore" mapstructure:"minScore"`
	RRF          RRFConfig `json:"rrf" mapstructure:"rrf"`
}

// CrawlConfig configures the web-crawl capability.
type CrawlConfig struct {
	UserAgent      string        `json:"userAgent" mapstructure:"userAgent"`
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxConcurrency int           `json:"maxConcurrency" mapstructure:"maxConcurrency"`
}

// ServerConfig configures the request/tool servers built on the engine.
type ServerConfig struct {
	Port int    `json:"port" mapstructure:"port"`
	Host string `json:"host" mapstructure:"host"`
}

// Default returns the configuration used when config.json is absent.
func Default() *Config {
	return &Config{
		DataDir: "~/.bluera-knowledge",
		Embedding: EmbeddingConfig{
			Model:      "all-MiniLM-L6-v2",
			BatchSize:  32,
			Dimensions: 384,
		},
		Indexing: IndexingConfig{
			Concurrency:  1,
			ChunkSize:    768,
			ChunkOverlap: 100,
			IgnorePatterns: []string{
				"node_modules/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"vendor/**",
				"__pycache__/**",
				".next/**",
				"coverage/**",
			},
		},
		Search: SearchConfig{
			DefaultMode:  "hybrid",
			DefaultLimit: 10,
			MinScore:     0,
			RRF:          RRFConfig{K: 20, VectorWeight: 0.6, FTSWeight: 0.4},
		},
		Crawl: CrawlConfig{
			UserAgent:      "bluera-knowledge/1.0",
			Timeout:        30 * time.Second,
			MaxConcurrency: 4,
		},
		Server: ServerConfig{
			Port: 8372,
			Host: "127.0.0.1",
		},
	}
}
