package api

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/diogo/llmchat/internal/models"
)

// Per-message overhead of the chat format, as counted by OpenAI.
const tokensPerMessage = 4

var encoders sync.Map // model -> *tiktoken.Tiktoken, or nil when unknown

func encoderFor(model string) *tiktoken.Tiktoken {
	if v, ok := encoders.Load(model); ok {
		tk, _ := v.(*tiktoken.Tiktoken)
		return tk
	}
	tk, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tk = nil
	}
	encoders.Store(model, tk)
	return tk
}

// CountTokens returns the prompt size of req in tokens. exact is false when
// no tokenizer is known for the model and the size was estimated from the
// text length. The first call for a model may fetch its encoding, so keep
// it off the UI thread.
func CountTokens(req Request) (count int, exact bool) {
	var texts []string
	if req.SystemMessage != "" {
		texts = append(texts, req.SystemMessage)
	}
	for _, m := range BuildMessages(req, nil) {
		if m.Role == "system" {
			continue
		}
		texts = append(texts, m.Content)
	}

	tk := encoderFor(req.Model)
	for _, t := range texts {
		count += tokensPerMessage
		if tk != nil {
			count += len(tk.Encode(t, nil, nil))
		} else {
			count += EstimateTokens(t)
		}
	}
	return count, tk != nil
}

// EstimateTokens approximates the token count of text at four characters per
// token. Image references count as a short marker.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(models.PlainText(text))
	return (n + 3) / 4
}
