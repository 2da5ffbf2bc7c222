package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lantern.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "phi4-mini"
  max_tokens: 512
  temperature: 0.5

embedder:
  model: "nomic-embed-text:latest"

knowledge:
  path: "testdata/kb.json"
  top_k: 5

updater:
  manifest_url: "http://localhost:1102/latest.json"
  metadata_path: "testdata/local_metadata.json"
  probe_timeout: 2
  fetch_timeout: 4
  download_timeout: 8

search:
  engine: "google"
  max_results: 3

ui:
  serve_addr: ":9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "phi4-mini", config.LLM.Model)
	assert.Equal(t, 512, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "testdata/kb.json", config.Knowledge.Path)
	assert.Equal(t, 5, config.Knowledge.TopK)
	assert.Equal(t, 2, config.Updater.ProbeTimeout)
	assert.Equal(t, 4, config.Updater.FetchTimeout)
	assert.Equal(t, 8, config.Updater.DownloadTimeout)
	assert.Equal(t, 3, config.Search.MaxResults)
	assert.Equal(t, ":9090", config.UI.ServeAddr)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, config)

	config, err = getDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, 1024, config.LLM.MaxTokens)
	assert.Equal(t, "data/kb.json", config.Knowledge.Path)
	assert.Equal(t, 3, config.Knowledge.TopK)
	assert.Equal(t, "http://clients3.google.com/generate_204", config.Updater.CheckURL)
	assert.Equal(t, 3, config.Updater.ProbeTimeout)
	assert.Equal(t, 5, config.Updater.FetchTimeout)
	assert.Equal(t, 10, config.Updater.DownloadTimeout)
	assert.Equal(t, "google", config.Search.Engine)
	assert.Equal(t, 5, config.Search.MaxResults)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedErrs  int
		errorMessages []string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "invalid config",
			mutate: func(c *Config) {
				c.LLM.BaseURL = ""
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
				c.Updater.ManifestURL = ""
				c.Knowledge.TopK = 0
			},
			expectedErrs: 5,
			errorMessages: []string{
				"llm.base_url: Ollama base URL is required",
				"llm.max_tokens: max_tokens must be between 1 and 4096",
				"llm.temperature: temperature must be between 0 and 2",
				"knowledge.top_k: top_k must be positive",
				"updater.manifest_url: manifest URL is required",
			},
		},
		{
			name: "invalid database section",
			mutate: func(c *Config) {
				c.Database.URL = "postgres://localhost:5432/lantern"
				c.Database.VectorDim = -1
				c.Database.BatchSize = 0
			},
			expectedErrs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errors := config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/lantern")
	t.Setenv("SERPAPI_API_KEY", "env-key")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "http://env-ollama:11434", config.Embedder.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/lantern", config.Database.URL)
	assert.Equal(t, "env-key", config.Search.APIKey)
}
