package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Updater   UpdaterConfig   `yaml:"updater"`
	Search    SearchConfig    `yaml:"search"`
	Database  DatabaseConfig  `yaml:"database"`
	UI        UIConfig        `yaml:"ui"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type EmbedderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type KnowledgeConfig struct {
	Path string `yaml:"path"`
	TopK int    `yaml:"top_k"`
}

// UpdaterConfig timeouts are whole seconds.
type UpdaterConfig struct {
	ManifestURL     string `yaml:"manifest_url"`
	MetadataPath    string `yaml:"metadata_path"`
	CheckURL        string `yaml:"check_url"`
	ProbeTimeout    int    `yaml:"probe_timeout"`
	FetchTimeout    int    `yaml:"fetch_timeout"`
	DownloadTimeout int    `yaml:"download_timeout"`
}

type SearchConfig struct {
	APIKey     string `yaml:"api_key"`
	Engine     string `yaml:"engine"`
	MaxResults int    `yaml:"max_results"`
}

// DatabaseConfig is optional; a non-empty URL switches the knowledge base to
// the pgvector index backend.
type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type UIConfig struct {
	ServeAddr string `yaml:"serve_addr"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"lantern.yaml",
			"lantern.yml",
			filepath.Join(os.Getenv("HOME"), ".config/lantern/config.yaml"),
			"/etc/lantern/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "phi4-mini"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1024
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}
	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = config.LLM.BaseURL
	}

	if config.Knowledge.Path == "" {
		config.Knowledge.Path = "data/kb.json"
	}
	if config.Knowledge.TopK == 0 {
		config.Knowledge.TopK = 3
	}

	if config.Updater.ManifestURL == "" {
		config.Updater.ManifestURL = "http://localhost:1102/latest.json"
	}
	if config.Updater.MetadataPath == "" {
		config.Updater.MetadataPath = "data/local_metadata.json"
	}
	if config.Updater.CheckURL == "" {
		config.Updater.CheckURL = "http://clients3.google.com/generate_204"
	}
	if config.Updater.ProbeTimeout == 0 {
		config.Updater.ProbeTimeout = 3
	}
	if config.Updater.FetchTimeout == 0 {
		config.Updater.FetchTimeout = 5
	}
	if config.Updater.DownloadTimeout == 0 {
		config.Updater.DownloadTimeout = 10
	}

	if config.Search.Engine == "" {
		config.Search.Engine = "google"
	}
	if config.Search.MaxResults == 0 {
		config.Search.MaxResults = 5
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.UI.ServeAddr == "" {
		config.UI.ServeAddr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if apiKey := os.Getenv("SERPAPI_API_KEY"); apiKey != "" {
		config.Search.APIKey = apiKey
	}
}

// Second-granularity YAML fields converted for callers working with
// time.Duration.
func (u UpdaterConfig) ProbeTimeoutDuration() time.Duration {
	return time.Duration(u.ProbeTimeout) * time.Second
}

func (u UpdaterConfig) FetchTimeoutDuration() time.Duration {
	return time.Duration(u.FetchTimeout) * time.Second
}

func (u UpdaterConfig) DownloadTimeoutDuration() time.Duration {
	return time.Duration(u.DownloadTimeout) * time.Second
}
