package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Knowledge.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "knowledge.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Updater.ManifestURL == "" {
		errors = append(errors, ValidationError{
			Field:   "updater.manifest_url",
			Message: "manifest URL is required",
		})
	} else if _, err := url.ParseRequestURI(c.Updater.ManifestURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "updater.manifest_url",
			Message: "invalid manifest URL",
		})
	}

	if c.Updater.ProbeTimeout < 1 || c.Updater.FetchTimeout < 1 || c.Updater.DownloadTimeout < 1 {
		errors = append(errors, ValidationError{
			Field:   "updater",
			Message: "timeouts must be at least one second",
		})
	}

	if c.Search.MaxResults < 1 || c.Search.MaxResults > 10 {
		errors = append(errors, ValidationError{
			Field:   "search.max_results",
			Message: "max_results must be between 1 and 10",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
		if c.Database.VectorDim < 1 {
			errors = append(errors, ValidationError{
				Field:   "database.vector_dim",
				Message: "vector_dim must be positive",
			})
		}
		if c.Database.BatchSize < 1 {
			errors = append(errors, ValidationError{
				Field:   "database.batch_size",
				Message: "batch_size must be positive",
			})
		}
	}

	return errors
}
