package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/models"
)

// listIntent is an action requested from the chat list that the parent
// model carries out.
type listIntent struct {
	kind   listIntentKind
	chatID string
	pinned bool
}

type listIntentKind int

const (
	intentNone listIntentKind = iota
	intentOpen
	intentNew
	intentTogglePin
	intentDelete
	intentQuit
)

// ChatList is the chat selection screen: one cell per chat with its
// service, name, preview and age, filtered by a search query.
type ChatList struct {
	chats    []*models.Chat
	services map[string]string

	query     textinput.Model
	searching bool
	cursor    int
	confirm   bool // waiting for y/n after d

	width  int
	height int
}

// NewChatList creates an empty chat list.
func NewChatList(cfg config.Config) ChatList {
	q := textinput.New()
	q.Placeholder = "search"
	q.Prompt = "/ "
	q.CharLimit = 200

	l := ChatList{query: q}
	return l.WithConfig(cfg)
}

// WithConfig refreshes the service names shown as captions.
func (l ChatList) WithConfig(cfg config.Config) ChatList {
	l.services = make(map[string]string, len(cfg.Services))
	for _, s := range cfg.Services {
		l.services[s.ID] = s.DisplayName()
	}
	if def, ok := cfg.FindService(cfg.DefaultService); ok {
		l.services[""] = def.DisplayName()
	}
	return l
}

// SetChats replaces the listed chats, keeping the cursor in range.
func (l ChatList) SetChats(chats []*models.Chat) ChatList {
	l.chats = chats
	if n := len(l.filtered()); l.cursor >= n {
		l.cursor = max(n-1, 0)
	}
	return l
}

// SetSize sets the area available to the list.
func (l ChatList) SetSize(width, height int) ChatList {
	l.width = width
	l.height = height
	l.query.Width = max(width-4, 10)
	return l
}

// Query returns the current search text.
func (l ChatList) Query() string {
	return strings.TrimSpace(l.query.Value())
}

// filtered returns the chats matching the query in their name, preview or
// any message.
func (l ChatList) filtered() []*models.Chat {
	q := strings.ToLower(l.Query())
	if q == "" {
		return l.chats
	}
	var out []*models.Chat
	for _, c := range l.chats {
		if matchesChat(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matchesChat(c *models.Chat, q string) bool {
	if strings.Contains(strings.ToLower(c.Title()), q) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(models.PlainText(m.Body)), q) {
			return true
		}
	}
	return false
}

// Selected returns the chat under the cursor.
func (l ChatList) Selected() (*models.Chat, bool) {
	chats := l.filtered()
	if l.cursor < 0 || l.cursor >= len(chats) {
		return nil, false
	}
	return chats[l.cursor], true
}

// Update handles a key press and reports what the parent should do.
func (l ChatList) Update(msg tea.KeyMsg) (ChatList, listIntent, tea.Cmd) {
	if l.searching {
		return l.updateSearch(msg)
	}

	if l.confirm {
		l.confirm = false
		if msg.String() == "y" {
			if c, ok := l.Selected(); ok {
				return l, listIntent{kind: intentDelete, chatID: c.ID}, nil
			}
		}
		return l, listIntent{}, nil
	}

	n := len(l.filtered())
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return l, listIntent{kind: intentQuit}, nil

	case "up", "k":
		if n > 0 {
			l.cursor = (l.cursor - 1 + n) % n
		}

	case "down", "j":
		if n > 0 {
			l.cursor = (l.cursor + 1) % n
		}

	case "/":
		l.searching = true
		cmd := l.query.Focus()
		return l, listIntent{}, cmd

	case "enter":
		if c, ok := l.Selected(); ok {
			return l, listIntent{kind: intentOpen, chatID: c.ID}, nil
		}

	case "n":
		return l, listIntent{kind: intentNew}, nil

	case "p":
		if c, ok := l.Selected(); ok {
			return l, listIntent{kind: intentTogglePin, chatID: c.ID, pinned: !c.IsPinned}, nil
		}

	case "d":
		if _, ok := l.Selected(); ok {
			l.confirm = true
		}
	}
	return l, listIntent{}, nil
}

func (l ChatList) updateSearch(msg tea.KeyMsg) (ChatList, listIntent, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return l, listIntent{kind: intentQuit}, nil
	case "esc":
		l.searching = false
		l.query.Blur()
		l.query.SetValue("")
		l.cursor = 0
		return l, listIntent{}, nil
	case "enter", "down", "up":
		l.searching = false
		l.query.Blur()
		return l, listIntent{}, nil
	}

	var cmd tea.Cmd
	l.query, cmd = l.query.Update(msg)
	l.cursor = 0
	return l, listIntent{}, cmd
}

// View renders the list.
func (l ChatList) View() string {
	width := max(l.width-4, 20)

	var sb strings.Builder
	sb.WriteString(listTitleStyle.Render(fmt.Sprintf("Chats (%d)", len(l.chats))))
	sb.WriteString("\n")
	if l.searching || l.Query() != "" {
		sb.WriteString(l.query.View())
		sb.WriteString("\n\n")
	}

	chats := l.filtered()
	if len(chats) == 0 {
		if len(l.chats) == 0 {
			sb.WriteString(hintStyle.Render("  No chats yet. Press n to start one"))
		} else {
			sb.WriteString(hintStyle.Render("  No chats match the search"))
		}
		sb.WriteString("\n")
	}

	// each cell takes three lines
	visible := max((l.height-8)/3, 1)
	start := 0
	if l.cursor >= visible {
		start = l.cursor - visible + 1
	}
	end := min(start+visible, len(chats))

	if start > 0 {
		sb.WriteString(hintStyle.Render("  ↑ more above"))
		sb.WriteString("\n")
	}
	for i := start; i < end; i++ {
		sb.WriteString(l.renderCell(chats[i], i == l.cursor, width))
		sb.WriteString("\n")
	}
	if end < len(chats) {
		sb.WriteString(hintStyle.Render("  ↓ more below"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if l.confirm {
		sb.WriteString(noticeStyle.Render("Delete this chat? (y/n)"))
	} else {
		sb.WriteString(renderShortcuts([][2]string{
			{"Enter", "Open"}, {"n", "New"}, {"p", "Pin"}, {"d", "Delete"}, {"/", "Search"}, {"q", "Quit"},
		}))
	}
	return sb.String()
}

func (l ChatList) renderCell(c *models.Chat, selected bool, width int) string {
	cursor := "  "
	nameStyle := listItemStyle
	if selected {
		cursor = cursorStyle.Render("▸ ")
		nameStyle = listSelectedStyle
	}

	pin := ""
	if c.IsPinned {
		pin = listPinnedStyle.Render("★ ")
	}

	age := humanize.Time(c.UpdatedAt)
	name := truncate(c.Title(), width-runewidth.StringWidth(age)-6)
	gap := width - 4 - runewidth.StringWidth(name) - runewidth.StringWidth(age)
	if c.IsPinned {
		gap -= 2
	}
	line1 := cursor + pin + highlight(name, l.Query(), nameStyle) +
		strings.Repeat(" ", max(gap, 1)) + hintStyle.Render(age)

	caption := l.services[c.APIServiceID]
	if caption == "" {
		caption = l.services[""]
	}
	if caption == "" {
		caption = "no service"
	}
	preview := strings.Join(strings.Fields(c.Preview()), " ")
	previewWidth := width - runewidth.StringWidth(caption) - 7
	line2 := "    " + listCaptionStyle.Render(caption) + hintStyle.Render(" · ") +
		highlight(truncate(preview, previewWidth), l.Query(), listPreviewStyle)

	return line1 + "\n" + line2 + "\n"
}

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	if width <= 1 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// highlight renders s with base, marking case-insensitive matches of query.
func highlight(s, query string, base lipgloss.Style) string {
	if query == "" {
		return base.Render(s)
	}
	lower := strings.ToLower(s)
	q := strings.ToLower(query)
	if len(lower) != len(s) {
		// case folding changed byte offsets
		return base.Render(s)
	}

	var sb strings.Builder
	rest := 0
	for {
		i := strings.Index(lower[rest:], q)
		if i < 0 {
			break
		}
		i += rest
		sb.WriteString(base.Render(s[rest:i]))
		sb.WriteString(listMatchStyle.Render(s[i : i+len(q)]))
		rest = i + len(q)
	}
	sb.WriteString(base.Render(s[rest:]))
	return sb.String()
}

func renderShortcuts(keys [][2]string) string {
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, statusKeyStyle.Render(k[0])+statusDescStyle.Render(" "+k[1]))
	}
	return statusBarStyle.Render(strings.Join(items, "  │  "))
}
