package api

import (
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/diogo/llmchat/internal/logger"
	"github.com/diogo/llmchat/internal/models"
)

// BuildMessages turns a request into the chat completion message list: the
// system message, the last ContextSize messages before Body, then Body as
// the user turn. A trailing own message equal to Body is the message being
// sent and is not repeated. Image references become data URLs when images
// is non-nil.
func BuildMessages(req Request, images ImageLoader) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	if req.SystemMessage != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemMessage,
		})
	}

	prior := make([]models.Message, len(req.Messages))
	copy(prior, req.Messages)
	models.SortMessages(prior)
	if n := len(prior); n > 0 && prior[n-1].Own && prior[n-1].Body == req.Body {
		prior = prior[:n-1]
	}
	if req.ContextSize > 0 && len(prior) > req.ContextSize {
		prior = prior[len(prior)-req.ContextSize:]
	}

	for _, m := range prior {
		if m.Own {
			out = append(out, userMessage(m.Body, images))
			continue
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: models.FilterThinking(m.Body),
		})
	}

	return append(out, userMessage(req.Body, images))
}

func userMessage(body string, images ImageLoader) openai.ChatCompletionMessage {
	parts := models.DecodeContents(body)

	hasImage := false
	for _, p := range parts {
		if p.IsImage() {
			hasImage = true
			break
		}
	}
	if !hasImage {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: body}
	}
	if images == nil {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: models.PlainText(body)}
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	for _, p := range parts {
		if !p.IsImage() {
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
			continue
		}

		data, mimeType, err := images.Load(p.ImageID)
		if err != nil {
			logger.Warn("image unavailable", "image", p.ImageID, "error", err)
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: "[image unavailable]",
			})
			continue
		}
		msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(mimeType, data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return msg
}

func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
