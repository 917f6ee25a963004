package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/llmchat/internal/models"
)

// ExportFormat represents the format for exporting chats
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ExportOptions configures how chats are exported
type ExportOptions struct {
	Format               ExportFormat
	IncludeSystemMessage bool
	IncludeThinking      bool // keep <think> blocks in assistant replies
}

// DefaultExportOptions returns sensible defaults for export
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:               ExportFormatMarkdown,
		IncludeSystemMessage: true,
		IncludeThinking:      false,
	}
}

func exportBody(msg models.Message, opts ExportOptions) string {
	body := models.PlainText(msg.Body)
	if !msg.Own && !opts.IncludeThinking {
		body = models.FilterThinking(body)
	}
	return body
}

// ExportMarkdown renders a chat as Markdown
func ExportMarkdown(repo Repository, id string, opts ExportOptions) (string, error) {
	chat, err := repo.GetChat(id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(chat.Title())
	sb.WriteString("\n\n")

	if chat.APIServiceID != "" {
		fmt.Fprintf(&sb, "**Service:** %s\n", chat.APIServiceID)
	}
	fmt.Fprintf(&sb, "**Created:** %s\n", chat.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Updated:** %s\n", chat.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Messages:** %d\n\n---\n\n", len(chat.Messages))

	if opts.IncludeSystemMessage && chat.SystemMessage != "" {
		sb.WriteString("> ")
		sb.WriteString(strings.ReplaceAll(chat.SystemMessage, "\n", "\n> "))
		sb.WriteString("\n\n---\n\n")
	}

	msgs := chat.SortedMessages()
	for i, msg := range msgs {
		role := "Assistant"
		if msg.Own {
			role = "User"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp.Format("15:04:05"))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")
		sb.WriteString(exportBody(msg, opts))
		sb.WriteString("\n")

		if i < len(msgs)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String(), nil
}

type exportMessage struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Images    []string  `json:"images,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type exportChat struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Service       string          `json:"service,omitempty"`
	SystemMessage string          `json:"system_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Messages      []exportMessage `json:"messages"`
}

// ExportJSON renders a chat as indented JSON
func ExportJSON(repo Repository, id string, opts ExportOptions) ([]byte, error) {
	chat, err := repo.GetChat(id)
	if err != nil {
		return nil, err
	}

	out := exportChat{
		ID:        chat.ID,
		Title:     chat.Title(),
		Service:   chat.APIServiceID,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	}
	if opts.IncludeSystemMessage {
		out.SystemMessage = chat.SystemMessage
	}

	for _, msg := range chat.SortedMessages() {
		role := "assistant"
		if msg.Own {
			role = "user"
		}
		out.Messages = append(out.Messages, exportMessage{
			ID:        msg.ID,
			Role:      role,
			Content:   exportBody(msg, opts),
			Images:    models.ImageIDs(msg.Body),
			Timestamp: msg.Timestamp,
		})
	}

	return json.MarshalIndent(out, "", "  ")
}

// SearchResult represents a search match in chats
type SearchResult struct {
	Chat         *models.Chat
	MatchSnippet string // snippet where the term was found
	MatchField   string // "title" or "content"
	MatchIndex   int    // message index for content matches, -1 for title
}

// Search looks for query in chat titles and optionally message bodies
func Search(repo Repository, query string, searchContent bool) ([]*SearchResult, error) {
	chats, err := repo.ListChats()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var results []*SearchResult

	for _, chat := range chats {
		if strings.Contains(strings.ToLower(chat.Title()), queryLower) {
			results = append(results, &SearchResult{
				Chat:         chat,
				MatchSnippet: chat.Title(),
				MatchField:   "title",
				MatchIndex:   -1,
			})
			continue
		}

		if !searchContent {
			continue
		}
		for i, msg := range chat.SortedMessages() {
			body := models.PlainText(msg.Body)
			if strings.Contains(strings.ToLower(body), queryLower) {
				results = append(results, &SearchResult{
					Chat:         chat,
					MatchSnippet: extractSnippet(body, query, 100),
					MatchField:   "content",
					MatchIndex:   i,
				})
				break // one match per chat
			}
		}
	}

	return results, nil
}

// extractSnippet extracts a snippet around the first occurrence of query
func extractSnippet(content, query string, maxLen int) string {
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) > maxLen {
			return content[:maxLen] + "..."
		}
		return content
	}

	half := maxLen / 2
	start := idx - half
	end := idx + len(query) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(content) {
		end = len(content)
		start = max(end-maxLen, 0)
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}
