package llm

import "fmt"

// Config selects and parameterizes a provider variant.
type Config struct {
	Provider  string `yaml:"provider" json:"provider"`
	APIKey    string `yaml:"api_key" json:"api_key"`
	Model     string `yaml:"model" json:"model"`
	Host      string `yaml:"host" json:"host"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// NewProvider builds a Provider for the configured variant.
func NewProvider(cfg Config) (Provider, error) {
	completer, err := newCompleter(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(completer), nil
}

func newCompleter(cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	case "gemini", "google":
		return NewGeminiProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (supported: anthropic, gemini, openai)", cfg.Provider)
	}
}
