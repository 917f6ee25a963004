package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/llmchat/internal/chat"
	"github.com/diogo/llmchat/internal/render"
)

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if m.screen == screenList || m.coord == nil {
		view := m.list.View()
		if m.err != nil {
			view += "\n" + FormatError(m.err)
		}
		return view
	}

	contentWidth := m.width - 4
	var sections []string

	sections = append(sections, m.renderHeader(contentWidth))

	var messagesContent string
	if m.coord.ViewModel().Count() == 0 && !m.coord.Busy() && m.coord.Error() == nil {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(m.renderInput()))
	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(width int) string {
	vm := m.coord.ViewModel()
	service := "no service"
	if svc, ok := vm.Service(); ok {
		service = svc.DisplayName() + " · " + svc.EffectiveModel()
	}
	parts := []string{
		titleStyle.Render("✦ " + vm.Chat().Title()),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(service),
	}
	return headerStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Center, parts...))
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	title := welcomeTitleStyle.Width(width).Render("New chat")
	subtitle := welcomeStyle.Width(width).Render("Start a conversation by typing a message below")
	if !m.coord.ViewModel().CanSendMessage() {
		subtitle = welcomeStyle.Width(width).Render("No API service is configured for this chat")
	}

	content := lipgloss.JoinVertical(lipgloss.Center, "", title, "", subtitle, "")
	top := max((m.viewport.Height-lipgloss.Height(content))/2, 0)
	return strings.Repeat("\n", top) + content
}

func (m Model) renderInput() string {
	var parts []string
	if atts := m.coord.Attachments(); len(atts) > 0 {
		chips := make([]string, len(atts))
		for i, a := range atts {
			chips[i] = attachmentStyle.Render("🖼 " + a.FileName)
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Left, chips...))
	}

	switch m.mode {
	case modeAttach:
		parts = append(parts, inputLabelStyle.Render("Attach image"), m.attachInput.View())
	case modeSystem:
		parts = append(parts, inputLabelStyle.Render("System message"), m.textarea.View())
	default:
		parts = append(parts, inputLabelStyle.Render("You"), m.textarea.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderStatusBar(width int) string {
	var shortcuts [][2]string
	switch m.mode {
	case modeAttach, modeSystem:
		shortcuts = [][2]string{{"Enter", "Save"}, {"Esc", "Cancel"}}
	default:
		shortcuts = [][2]string{
			{"Enter", "Send"},
			{"^R", "Retry"},
			{"^O", "Attach"},
			{"^E", "System"},
			{"^L", "Chats"},
			{"Esc", "Quit"},
		}
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s[0])+statusDescStyle.Render(" "+s[1]))
	}
	bar := strings.Join(items, "  │  ")

	state := m.coord.Scroll().State().String()
	if m.coord.Busy() {
		state = m.coord.Status().String() + " · " + state
	}
	bar += statusDescStyle.Render("  │  " + state)
	if m.notice != "" {
		bar += "  " + noticeStyle.Render(m.notice)
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// refresh rebuilds the viewport content from the coordinator rows.
func (m *Model) refresh() {
	if !m.ready || m.coord == nil {
		return
	}

	bubbleWidth := max(m.viewport.Width-6, 10)
	opts := render.OptionsFromConfig(m.cfg.Markdown, bubbleWidth-4)

	var (
		content  strings.Builder
		lines    int
		starts   []int
		finished bool
	)
	// write appends a block and returns its first line.
	write := func(block string) int {
		if content.Len() > 0 {
			content.WriteString("\n\n")
			lines++
		}
		start := lines
		content.WriteString(block)
		lines += lipgloss.Height(block)
		return start
	}

	if sys := m.coord.ViewModel().Chat().SystemMessage; sys != "" {
		write(systemLabelStyle.Render("⚙ System") + "\n" +
			systemBubbleStyle.Width(bubbleWidth).Render(sys))
	}

	for _, row := range m.coord.Rows() {
		switch row.Kind {
		case chat.RowMessage:
			cell, rendered := m.cell(row, bubbleWidth, opts)
			if rendered && !row.Streaming {
				if blocks := render.CountCodeBlocks(row.Text); blocks > 0 && m.tracker.Rendered(blocks) {
					finished = true
				}
			}
			starts = append(starts, write(cell))

		case chat.RowWaiting:
			write(assistantLabelStyle.Render("✦ Assistant") + "\n" +
				loadingStyle.Render(m.spinner.View()+" thinking"))

		case chat.RowError:
			write(errorPanelStyle.Width(bubbleWidth).Render(
				FormatError(row.Err.Err) + "\n\n" +
					hintStyle.Render("ctrl+r retry · ctrl+x dismiss")))
		}
	}

	m.rowStarts = starts
	m.viewport.SetContent(content.String())
	if finished {
		m.scrollToLatest()
	}
}

// cell renders one message row, reporting whether it missed the cache.
func (m *Model) cell(row chat.Row, width int, opts render.Options) (string, bool) {
	key := cellKey{id: row.MessageID, body: row.Text, width: width}
	if !row.Streaming {
		if cached, ok := m.cells[key]; ok {
			return cached, false
		}
	}

	var out string
	if row.Own {
		out = userLabelStyle.Render("⬤ You") + "\n" +
			userBubbleStyle.Width(width).Render(render.Message(row.Text, false, opts))
	} else {
		label := "✦ Assistant"
		if row.Streaming {
			label += " " + m.spinner.View()
		}
		out = assistantLabelStyle.Render(label) + "\n" +
			assistantBubbleStyle.Width(width).Render(render.Message(row.Text, m.hideThinking, opts))
	}

	if !row.Streaming {
		m.cells[key] = out
	}
	return out, true
}
