package models

// APIService describes a configured completion endpoint and how chats bound
// to it should talk to it.
type APIService struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Type                 string `json:"type"`
	URL                  string `json:"url,omitempty"`
	APIKey               string `json:"api_key,omitempty"`
	Model                string `json:"model"`
	ContextSize          int    `json:"context_size"`
	UseStreamResponse    bool   `json:"use_stream_response"`
	ImageUploadsAllowed  bool   `json:"image_uploads_allowed"`
	GenerateChatNames    bool   `json:"generate_chat_names"`
	DefaultSystemMessage string `json:"default_system_message,omitempty"`
}

// EffectiveContextSize returns the configured context size, or the default
// when unset.
func (s APIService) EffectiveContextSize() int {
	if s.ContextSize <= 0 {
		return DefaultContextSize
	}
	return s.ContextSize
}

// EffectiveURL returns the configured base URL or the default for the type.
func (s APIService) EffectiveURL() string {
	if s.URL != "" {
		return s.URL
	}
	return DefaultURLForType(s.Type)
}

// EffectiveModel returns the configured model or DefaultModel.
func (s APIService) EffectiveModel() string {
	if s.Model != "" {
		return s.Model
	}
	return DefaultModel
}

// DisplayName returns Name, falling back to the model id.
func (s APIService) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.EffectiveModel()
}
