package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	apierrors "github.com/diogo/llmchat/internal/errors"
	"github.com/diogo/llmchat/internal/logger"
	"github.com/diogo/llmchat/internal/models"
)

const titlePrompt = "Write a title of at most five words for the conversation above. Reply with the title only, without quotes or trailing punctuation."

// OpenAIClient implements Client on top of go-openai. It works with any
// service that speaks the OpenAI chat completions API.
type OpenAIClient struct {
	client  *openai.Client
	service models.APIService
	images  ImageLoader
}

// ClientOption configures an OpenAIClient
type ClientOption func(*openai.ClientConfig)

// WithHTTPClient replaces the HTTP client used for requests
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(cfg *openai.ClientConfig) {
		cfg.HTTPClient = hc
	}
}

// NewOpenAIClient creates a client for svc. images may be nil when the
// service does not accept image uploads.
func NewOpenAIClient(svc models.APIService, images ImageLoader, opts ...ClientOption) *OpenAIClient {
	cfg := openai.DefaultConfig(svc.APIKey)
	cfg.BaseURL = strings.TrimRight(svc.EffectiveURL(), "/")
	for _, opt := range opts {
		opt(&cfg)
	}

	if !svc.ImageUploadsAllowed {
		images = nil
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		service: svc,
		images:  images,
	}
}

var _ Client = (*OpenAIClient)(nil)

func (c *OpenAIClient) model(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return c.service.EffectiveModel()
}

// SendOnce performs a non-streaming completion
func (c *OpenAIClient) SendOnce(ctx context.Context, req Request) (string, error) {
	msgs := BuildMessages(req, c.images)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model(req),
		Messages: msgs,
	})
	if err != nil {
		return "", Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", apierrors.NewCompletionError(apierrors.KindMalformedResponse, 0, "response has no choices",
			apierrors.NewParseError("no choices", "choices"))
	}

	return resp.Choices[0].Message.Content, nil
}

// SendStream performs a streaming completion
func (c *OpenAIClient) SendStream(ctx context.Context, req Request, onChunk func(string)) error {
	msgs := BuildMessages(req, c.images)

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model(req),
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return Classify(err)
	}
	defer stream.Close()

	chunks := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			logger.Debug("stream finished", "model", c.model(req), "chunks", chunks)
			return nil
		}
		if err != nil {
			return Classify(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if text := resp.Choices[0].Delta.Content; text != "" {
			chunks++
			onChunk(text)
		}
	}
}

// GenerateTitle asks the model for a short chat title
func (c *OpenAIClient) GenerateTitle(ctx context.Context, req Request) (string, error) {
	var msgs []openai.ChatCompletionMessage
	for _, m := range firstExchange(req.Messages) {
		role := openai.ChatMessageRoleAssistant
		if m.Own {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    role,
			Content: models.FilterThinking(models.PlainText(m.Body)),
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: titlePrompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model(req),
		Messages: msgs,
	})
	if err != nil {
		return "", Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", apierrors.NewCompletionError(apierrors.KindMalformedResponse, 0, "response has no choices", nil)
	}

	return CleanTitle(resp.Choices[0].Message.Content), nil
}

// firstExchange returns the first own message and the first reply after it.
func firstExchange(msgs []models.Message) []models.Message {
	sorted := make([]models.Message, len(msgs))
	copy(sorted, msgs)
	models.SortMessages(sorted)

	var out []models.Message
	for _, m := range sorted {
		if len(out) == 0 && !m.Own {
			continue
		}
		out = append(out, m)
		if len(out) == 2 {
			break
		}
	}
	return out
}

// CleanTitle strips reasoning blocks, quotes and trailing punctuation from a
// generated title.
func CleanTitle(title string) string {
	title = models.FilterThinking(strings.TrimSpace(title))
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "\"'`*“”")
	title = strings.TrimRight(title, ".!?:;")
	return strings.TrimSpace(title)
}
