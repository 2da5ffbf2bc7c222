package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/avoss/lantern/internal/models"
)

// conciseRetryMargin: when the completion lands this close to the token
// budget the output was likely truncated, so the call is redone once with a
// shorter-form instruction.
const conciseRetryMargin = 10

var controlTokens = regexp.MustCompile(`<\|.*?\|>`)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	BaseURL      string // Ollama server URL
}

// ChatEngine is an engine that uses an LLM to generate chat responses.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "phi4-mini"
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = "You are a helpful AI assistant."
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Model returns the model identifier the engine was built against.
func (ce *ChatEngine) Model() string { return ce.config.Model }

// GenerateReply produces a single assistant response for the user input,
// given prior conversation turns and optional knowledge snippets. If the
// first generation appears truncated by the token budget the call is redone
// once asking for a concise answer.
func (ce *ChatEngine) GenerateReply(ctx context.Context, history []models.ChatMessage, input string, snippets []string) (string, error) {
	reply, used, err := ce.generate(ctx, history, input, snippets, false)
	if err != nil {
		return "", err
	}

	if used >= ce.config.MaxTokens-conciseRetryMargin {
		reply, _, err = ce.generate(ctx, history, input, snippets, true)
		if err != nil {
			return "", err
		}
	}

	return reply, nil
}

func (ce *ChatEngine) generate(ctx context.Context, history []models.ChatMessage, input string, snippets []string, concise bool) (string, int, error) {
	content := ce.buildMessages(history, input, snippets, concise)

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature))
	if err != nil {
		return "", 0, fmt.Errorf("chat error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", 0, fmt.Errorf("chat error: no response from LLM")
	}

	choice := response.Choices[0]
	return CleanResponse(choice.Content), completionTokens(choice), nil
}

func (ce *ChatEngine) buildMessages(history []models.ChatMessage, input string, snippets []string, concise bool) []llms.MessageContent {
	system := ce.config.SystemPrompt
	if len(snippets) > 0 {
		system += "\nRelevant Information:\n" + strings.Join(snippets, "\n")
	}
	if concise {
		system += "\nPlease provide a short and concise answer."
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
	}
	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case models.RoleAssistant:
			content = append(content, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		}
	}
	return append(content, llms.TextParts(llms.ChatMessageTypeHuman, input))
}

// CleanResponse strips control tokens like <|end|> or <|user|> that some
// models leak into their output.
func CleanResponse(response string) string {
	return strings.TrimSpace(controlTokens.ReplaceAllString(response, ""))
}

// completionTokens reads the token count from the provider's generation
// info; providers disagree on the numeric type.
func completionTokens(choice *llms.ContentChoice) int {
	if choice == nil || choice.GenerationInfo == nil {
		return 0
	}
	switch v := choice.GenerationInfo["CompletionTokens"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
