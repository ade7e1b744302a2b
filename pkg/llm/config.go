package llm

import (
	"strings"
	"time"
)

// Config carries the model collaborator settings. An empty API key means no
// model is configured and the service runs every turn in rule-based mode.
type Config struct {
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-4.1-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// Enabled reports whether a model client can be built from this config.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}
