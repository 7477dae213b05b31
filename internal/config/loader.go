package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// Loader loads configuration from config.json and environment variables.
type Loader interface {
	// Load loads configuration with priority: defaults, then the config
	// file, then environment variables (env wins). A missing config file is
	// created from the defaults on first read.
	Load() (*Config, error)
}

type loader struct {
	configPath  string
	projectRoot string
}

// NewLoader creates a Loader for the given config file path. An empty
// configPath falls back to the CONFIG_PATH environment variable, then to
// <projectRoot>/config.json.
func NewLoader(configPath, projectRoot string) Loader {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if projectRoot == "" {
		projectRoot = ResolveProjectRoot("")
	}
	if configPath == "" {
		configPath = filepath.Join(projectRoot, "config.json")
	}
	return &loader{configPath: configPath, projectRoot: projectRoot}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(l.configPath)
	v.SetConfigType("json")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.BindEnv("dataDir", "DATA_DIR")
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.batchSize")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("search.defaultMode")
	v.BindEnv("search.defaultLimit")
	v.BindEnv("server.port")
	v.BindEnv("server.host")

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) || isNotFound(err) {
			// First read: persist the defaults so the user has a file to edit.
			if writeErr := writeDefaults(l.configPath); writeErr != nil {
				return nil, writeErr
			}
		} else {
			return nil, engineerr.Wrap(engineerr.ParseFailure, "config.Load", "cannot read "+l.configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, engineerr.Wrap(engineerr.Invalid, "config.Load", "cannot unmarshal configuration", err)
	}

	cfg.DataDir = expandPath(cfg.DataDir, l.projectRoot)
	return cfg, nil
}

func isNotFound(err error) bool {
	_, ok := err.(viper.ConfigFileNotFoundError)
	return ok
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("dataDir", d.DataDir)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.batchSize", d.Embedding.BatchSize)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("indexing.concurrency", d.Indexing.Concurrency)
	v.SetDefault("indexing.chunkSize", d.Indexing.ChunkSize)
	v.SetDefault("indexing.chunkOverlap", d.Indexing.ChunkOverlap)
	v.SetDefault("indexing.ignorePatterns", d.Indexing.IgnorePatterns)
	v.SetDefault("search.defaultMode", d.Search.DefaultMode)
	v.SetDefault("search.defaultLimit", d.Search.DefaultLimit)
	v.SetDefault("search.minScore", d.Search.MinScore)
	v.SetDefault("search.rrf.k", d.Search.RRF.K)
	v.SetDefault("search.rrf.vectorWeight", d.Search.RRF.VectorWeight)
	v.SetDefault("search.rrf.ftsWeight", d.Search.RRF.FTSWeight)
	v.SetDefault("crawl.userAgent", d.Crawl.UserAgent)
	v.SetDefault("crawl.timeout", d.Crawl.Timeout)
	v.SetDefault("crawl.maxConcurrency", d.Crawl.MaxConcurrency)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return engineerr.Wrap(engineerr.IO, "config.Load", "cannot create config directory", err)
	}
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return engineerr.Wrap(engineerr.Invalid, "config.Load", "cannot marshal defaults", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return engineerr.Wrap(engineerr.IO, "config.Load", "cannot write "+path, err)
	}
	return nil
}

// expandPath expands a leading ~ against the home directory and resolves a
// relative path against the project root.
func expandPath(p, projectRoot string) string {
	if p == "" {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(projectRoot, p)
	}
	return filepath.Clean(p)
}

// ResolveProjectRoot resolves the project root: explicit argument, then
// PROJECT_ROOT, then PWD, then the nearest ancestor of the working directory
// containing a .git entry, then the working directory itself. Symlinks are
// resolved where possible.
func ResolveProjectRoot(explicit string) string {
	if explicit != "" {
		return resolveSymlinks(explicit)
	}
	if env := os.Getenv("PROJECT_ROOT"); env != "" {
		return resolveSymlinks(env)
	}
	if pwd := os.Getenv("PWD"); pwd != "" {
		return resolveSymlinks(pwd)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return resolveSymlinks(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return resolveSymlinks(cwd)
}

func resolveSymlinks(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}
