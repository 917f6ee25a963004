// Package models contains the data types shared by the chat client.
package models

// Defaults applied when an API service or chat leaves a value unset.
const (
	DefaultContextSize   = 10
	DefaultModel         = "gpt-4o-mini"
	DefaultAPIURL        = "https://api.openai.com/v1"
	DefaultSystemMessage = "You are a helpful assistant. Answer concisely and use Markdown where it helps."
)

// Service types understood by the completion client.
const (
	ServiceTypeOpenAI     = "openai"
	ServiceTypeOllama     = "ollama"
	ServiceTypeOpenRouter = "openrouter"
	ServiceTypeCustom     = "custom"
)

// ServiceTypes returns the list of known service types
func ServiceTypes() []string {
	return []string{
		ServiceTypeOpenAI,
		ServiceTypeOllama,
		ServiceTypeOpenRouter,
		ServiceTypeCustom,
	}
}

// DefaultURLForType returns the base URL used when a service of the given
// type has none configured.
func DefaultURLForType(serviceType string) string {
	switch serviceType {
	case ServiceTypeOllama:
		return "http://localhost:11434/v1"
	case ServiceTypeOpenRouter:
		return "https://openrouter.ai/api/v1"
	default:
		return DefaultAPIURL
	}
}
