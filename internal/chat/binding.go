package chat

import (
	"github.com/diogo/llmchat/internal/api"
	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/models"
)

// ClientFactory builds a completion client for a service.
type ClientFactory func(svc models.APIService) api.Client

// OpenAIFactory returns a factory for OpenAI-compatible clients that load
// attached images from images. images may be nil.
func OpenAIFactory(images api.ImageLoader, opts ...api.ClientOption) ClientFactory {
	return func(svc models.APIService) api.Client {
		return api.NewOpenAIClient(svc, images, opts...)
	}
}

// Bind resolves the service of chat from cfg and builds its client. Both
// are nil when no service resolves.
func Bind(cfg config.Config, chat *models.Chat, newClient ClientFactory) (*models.APIService, api.Client) {
	svc, ok := cfg.ResolveService(chat.APIServiceID)
	if !ok {
		return nil, nil
	}
	return &svc, newClient(svc)
}

// Open loads the view-model of a chat bound per cfg.
func Open(repo history.Repository, cfg config.Config, chat *models.Chat, newClient ClientFactory) *ViewModel {
	svc, client := Bind(cfg, chat, newClient)
	return NewViewModel(repo, chat, svc, client)
}
