// Package api talks to OpenAI-compatible chat completion services.
package api

import (
	"context"

	"github.com/diogo/llmchat/internal/models"
)

// Request is one completion call for a chat.
type Request struct {
	Model         string
	SystemMessage string
	// Messages is the chat history; the newest ContextSize entries before
	// Body are sent as context.
	Messages    []models.Message
	Body        string
	ContextSize int
}

// Client is the completion service consumed by the chat view-model.
type Client interface {
	// SendOnce returns the whole reply in one piece.
	SendOnce(ctx context.Context, req Request) (string, error)
	// SendStream calls onChunk for every piece of the reply, in arrival
	// order, and returns once the reply is complete.
	SendStream(ctx context.Context, req Request, onChunk func(string)) error
	// GenerateTitle asks for a short title for the chat in req.Messages.
	GenerateTitle(ctx context.Context, req Request) (string, error)
}

// ImageLoader returns stored image bytes and their MIME type.
type ImageLoader interface {
	Load(id string) ([]byte, string, error)
}
