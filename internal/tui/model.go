package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/llmchat/internal/chat"
	"github.com/diogo/llmchat/internal/config"
	apierrors "github.com/diogo/llmchat/internal/errors"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/logger"
	"github.com/diogo/llmchat/internal/models"
)

// Message types for the TUI
type (
	chatsLoadedMsg struct {
		chats []*models.Chat
		err   error
	}
	chatOpenedMsg struct {
		chat *models.Chat
		err  error
	}
	listOpDoneMsg struct {
		err error
	}
	// dispatchMsg carries one event read from a running send. events is
	// drained until closed even after the chat was left.
	dispatchMsg struct {
		ev     chat.Event
		events <-chan chat.Event
	}
	titleMsg struct {
		ev chat.TitleEvent
	}
	scrollTickMsg struct {
		chatID string
		token  uint64
	}
	configChangedMsg  struct{}
	configReloadedMsg struct {
		cfg config.Config
		err error
	}
	// recreateViewModelMsg rebinds the open chat to the current
	// configuration. It is dropped when another chat is open by then.
	recreateViewModelMsg struct {
		chatID string
	}
	copiedMsg struct {
		err error
	}
)

// ConfigChanged is sent to a running program when the config file changed.
func ConfigChanged() tea.Msg { return configChangedMsg{} }

type screen int

const (
	screenList screen = iota
	screenChat
)

type inputMode int

const (
	modeCompose inputMode = iota
	modeAttach
	modeSystem
)

// Options configures the TUI.
type Options struct {
	Repo       history.Repository
	Images     *history.ImageStore
	Config     config.Config
	ConfigPath string
	NewClient  chat.ClientFactory

	// ChatID opens a chat directly instead of the chat list.
	ChatID string
	// NewChat starts with a fresh chat.
	NewChat bool
	// ServiceID and SystemMessage apply to chats created from the TUI.
	ServiceID     string
	SystemMessage string
}

// Model represents the TUI state
type Model struct {
	opts Options
	cfg  config.Config
	ctx  context.Context

	screen screen
	list   ChatList

	coord *chat.Coordinator
	// coordinators of chats left while a send was still running
	background map[string]*chat.Coordinator
	tracker    chat.CodeBlockTracker
	cells      map[cellKey]string
	// first content line of each message row, for scrolling to a message
	rowStarts []int

	viewport    viewport.Model
	textarea    textarea.Model
	spinner     spinner.Model
	attachInput textinput.Model
	mode        inputMode
	draft       string

	hideThinking bool

	notice string
	err    error

	width  int
	height int
	ready  bool
}

type cellKey struct {
	id    int64
	body  string
	width int
}

// New creates the TUI model.
func New(opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("ctrl+j", "alt+enter")
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle
	ta.Focus()

	ai := textinput.New()
	ai.Placeholder = "path to an image"
	ai.Prompt = "Attach: "

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		opts:        opts,
		cfg:         opts.Config,
		ctx:         context.Background(),
		list:        NewChatList(opts.Config),
		cells:       make(map[cellKey]string),
		background:  make(map[string]*chat.Coordinator),
		textarea:    ta,
		spinner:     s,
		attachInput: ai,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	switch {
	case m.opts.ChatID != "":
		cmds = append(cmds, m.openChat(m.opts.ChatID))
	case m.opts.NewChat:
		cmds = append(cmds, m.newChat())
	default:
		cmds = append(cmds, m.loadChats())
	}
	return tea.Batch(cmds...)
}

func (m Model) loadChats() tea.Cmd {
	repo := m.opts.Repo
	return func() tea.Msg {
		chats, err := repo.ListChats()
		return chatsLoadedMsg{chats: chats, err: err}
	}
}

func (m Model) openChat(id string) tea.Cmd {
	repo := m.opts.Repo
	return func() tea.Msg {
		c, err := repo.GetChat(id)
		return chatOpenedMsg{chat: c, err: err}
	}
}

func (m Model) newChat() tea.Cmd {
	repo := m.opts.Repo
	serviceID, system := m.opts.ServiceID, m.opts.SystemMessage
	if system == "" {
		if svc, ok := m.cfg.ResolveService(serviceID); ok {
			system = svc.DefaultSystemMessage
		}
	}
	return func() tea.Msg {
		c, err := repo.CreateChat(serviceID, system)
		return chatOpenedMsg{chat: c, err: err}
	}
}

func (m Model) reloadConfig() tea.Cmd {
	path := m.opts.ConfigPath
	return func() tea.Msg {
		cfg, err := config.LoadConfigFrom(path)
		return configReloadedMsg{cfg: cfg, err: err}
	}
}

// waitForEvent reads the next event of a running send. It returns nil once
// the send is over.
func waitForEvent(events <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return dispatchMsg{ev: ev, events: events}
	}
}

func (m Model) runTitle(chatID string, job chat.TitleJob) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return titleMsg{ev: chat.RunTitle(ctx, chatID, job)}
	}
}

func (m Model) chatID() string {
	if m.coord == nil {
		return ""
	}
	return m.coord.ViewModel().ChatID()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.list = m.list.SetSize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case chatsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.list = m.list.SetChats(msg.chats)
		return m, nil

	case chatOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.screen = screenList
			return m, m.loadChats()
		}
		m.enterChat(msg.chat)
		return m, nil

	case listOpDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, m.loadChats()

	case dispatchMsg:
		cmds = append(cmds, waitForEvent(msg.events))
		if id := chat.ChatOf(msg.ev); m.background[id] != nil {
			out := m.background[id].Apply(msg.ev)
			if out.Title != nil {
				cmds = append(cmds, m.runTitle(id, out.Title))
			}
			if !m.background[id].Busy() {
				delete(m.background, id)
			}
			return m, tea.Batch(cmds...)
		}
		if m.coord == nil {
			return m, tea.Batch(cmds...)
		}
		out := m.coord.Apply(msg.ev)
		if out.Ignored {
			return m, tea.Batch(cmds...)
		}
		m.refresh()
		cmds = append(cmds, m.applyScroll(out.Scroll))
		if out.Title != nil {
			cmds = append(cmds, m.runTitle(m.chatID(), out.Title))
		}
		return m, tea.Batch(cmds...)

	case titleMsg:
		if m.coord != nil && m.chatID() == msg.ev.ChatID {
			m.coord.Apply(msg.ev)
			return m, nil
		}
		// the chat was left while its name was generated
		if msg.ev.Err == nil && msg.ev.Title != "" {
			if err := m.opts.Repo.UpdateTitle(msg.ev.ChatID, msg.ev.Title); err != nil {
				logger.Warn("failed to save chat title", "chat", msg.ev.ChatID, "error", err)
			}
		}
		return m, nil

	case scrollTickMsg:
		if m.coord != nil && msg.chatID == m.chatID() {
			return m, m.applyScroll(m.coord.FireScroll(msg.token))
		}
		return m, nil

	case configChangedMsg:
		return m, m.reloadConfig()

	case configReloadedMsg:
		if msg.err != nil {
			m.notice = "config reload failed: " + msg.err.Error()
			return m, nil
		}
		m.cfg = msg.cfg
		m.list = m.list.WithConfig(msg.cfg)
		ApplyTheme(msg.cfg.TUITheme)
		chatID := m.chatID()
		if chatID == "" {
			return m, nil
		}
		return m, func() tea.Msg { return recreateViewModelMsg{chatID: chatID} }

	case recreateViewModelMsg:
		if m.coord == nil || msg.chatID != m.chatID() {
			return m, nil
		}
		vm := m.coord.ViewModel()
		vm.Recreate(chat.Bind(m.cfg, vm.Chat(), m.opts.NewClient))
		m.cells = make(map[cellKey]string)
		m.notice = "configuration reloaded"
		m.refresh()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.notice = "copy failed: " + msg.err.Error()
		} else {
			m.notice = "copied latest response"
		}
		return m, nil

	case spinner.TickMsg:
		if m.coord != nil && m.coord.Busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh()
			return m, cmd
		}
		return m, nil

	case tea.MouseMsg:
		if m.screen != screenChat {
			return m, nil
		}
		if msg.Button == tea.MouseButtonWheelUp && m.coord != nil {
			m.coord.Scroll().UserScrolledUp()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.screen == screenList {
			return m.updateList(msg)
		}
		return m.updateChat(msg)
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	var (
		intent listIntent
		cmd    tea.Cmd
	)
	m.list, intent, cmd = m.list.Update(msg)

	repo := m.opts.Repo
	switch intent.kind {
	case intentQuit:
		return m, tea.Quit
	case intentOpen:
		return m, m.openChat(intent.chatID)
	case intentNew:
		return m, m.newChat()
	case intentTogglePin:
		return m, func() tea.Msg {
			return listOpDoneMsg{err: repo.SetPinned(intent.chatID, intent.pinned)}
		}
	case intentDelete:
		return m, func() tea.Msg {
			return listOpDoneMsg{err: repo.DeleteChat(intent.chatID)}
		}
	}
	return m, cmd
}

// leaveChat returns to the chat list. A chat with a send in flight keeps
// its coordinator until the send completes.
func (m *Model) leaveChat() {
	if m.coord != nil && m.coord.Busy() {
		m.background[m.chatID()] = m.coord
	}
	m.coord = nil
	m.screen = screenList
	m.mode = modeCompose
}

func (m *Model) enterChat(c *models.Chat) {
	if bg, ok := m.background[c.ID]; ok {
		delete(m.background, c.ID)
		m.coord = bg
		m.enterCoordinator()
		return
	}
	var images chat.AttachmentStore
	if m.opts.Images != nil {
		images = m.opts.Images
	}
	vm := chat.Open(m.opts.Repo, m.cfg, c, m.opts.NewClient)
	m.coord = chat.NewCoordinator(vm, images, chat.NewScrollFollow(m.cfg.ScrollDebounce()))
	m.enterCoordinator()
}

func (m *Model) enterCoordinator() {
	vm := m.coord.ViewModel()
	m.tracker.Reset(vm.Messages())
	m.cells = make(map[cellKey]string)
	m.mode = modeCompose
	m.notice = ""
	m.err = nil
	m.screen = screenChat
	m.textarea.Reset()
	m.textarea.Focus()
	m.refresh()
	if m.tracker.Pending() == 0 {
		m.scrollToLatest()
	}
	logger.Debug("chat opened", "chat", vm.ChatID(), "messages", vm.Count())
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.mode != modeCompose {
			m.leaveMode()
			return m, nil
		}
		return m, tea.Quit

	case "ctrl+l":
		m.leaveChat()
		return m, m.loadChats()
	}

	switch m.mode {
	case modeAttach:
		return m.updateAttach(msg)
	case modeSystem:
		return m.updateSystem(msg)
	}

	m.notice = ""
	switch msg.String() {
	case "enter":
		m.coord.SetInput(m.textarea.Value())
		d, err := m.coord.Send(false)
		return m.started(d, err, true)

	case "ctrl+r":
		d, err := m.coord.Retry()
		return m.started(d, err, false)

	case "ctrl+x":
		m.coord.DismissError()
		m.refresh()
		return m, nil

	case "ctrl+o":
		if svc, ok := m.coord.ViewModel().Service(); !ok || !svc.ImageUploadsAllowed {
			m.notice = chat.ErrImagesNotAllowed.Error()
			return m, nil
		}
		m.mode = modeAttach
		m.attachInput.SetValue("")
		m.textarea.Blur()
		cmd := m.attachInput.Focus()
		return m, cmd

	case "ctrl+e":
		if m.coord.Busy() {
			m.notice = "wait for the reply to finish"
			return m, nil
		}
		m.mode = modeSystem
		m.draft = m.textarea.Value()
		m.textarea.SetValue(m.coord.ViewModel().Chat().SystemMessage)
		return m, nil

	case "ctrl+y":
		return m, m.copyLatest()

	case "ctrl+t":
		m.hideThinking = !m.hideThinking
		m.cells = make(map[cellKey]string)
		m.refresh()
		return m, nil

	case "pgup":
		m.coord.Scroll().UserScrolledUp()
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil

	case "up":
		if m.textarea.Value() == "" {
			m.coord.Scroll().UserScrolledUp()
			m.viewport.LineUp(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// started wires a new dispatch into the event loop.
func (m Model) started(d *chat.Dispatch, err error, clearInput bool) (tea.Model, tea.Cmd) {
	if err != nil {
		if !apierrors.IsNoAPIServiceError(err) && !errors.Is(err, chat.ErrSendInProgress) {
			m.notice = err.Error()
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil
	}
	if d == nil {
		return m, nil
	}
	if clearInput {
		m.textarea.Reset()
	}
	m.refresh()
	return m, tea.Batch(
		m.applyScroll(m.coord.Follow()),
		waitForEvent(d.Events(m.ctx)),
		m.spinner.Tick,
	)
}

func (m Model) updateAttach(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "enter" {
		var cmd tea.Cmd
		m.attachInput, cmd = m.attachInput.Update(msg)
		return m, cmd
	}

	path := strings.TrimSpace(m.attachInput.Value())
	if path != "" {
		att, err := models.NewAttachment(expandHome(path))
		if err == nil {
			err = m.coord.AddAttachment(att)
		}
		if err != nil {
			m.notice = err.Error()
		}
	}
	m.leaveMode()
	return m, nil
}

func (m Model) updateSystem(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "enter" {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}

	if err := m.coord.ViewModel().SetSystemMessage(m.textarea.Value()); err != nil {
		m.notice = err.Error()
	}
	m.leaveMode()
	m.refresh()
	return m, nil
}

func (m *Model) leaveMode() {
	if m.mode == modeSystem {
		m.textarea.SetValue(m.draft)
		m.draft = ""
	}
	m.mode = modeCompose
	m.attachInput.Blur()
	m.textarea.Focus()
}

func (m Model) copyLatest() tea.Cmd {
	msgs := m.coord.ViewModel().Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Own {
			continue
		}
		text := models.FilterThinking(models.PlainText(msgs[i].Body))
		return func() tea.Msg {
			return copiedMsg{err: clipboard.WriteAll(text)}
		}
	}
	return nil
}

// applyScroll performs an immediate scroll or schedules a debounced one.
func (m *Model) applyScroll(req chat.ScrollRequest) tea.Cmd {
	if req.Debounced() {
		chatID, token := m.chatID(), req.Token
		return tea.Tick(req.Delay, func(time.Time) tea.Msg {
			return scrollTickMsg{chatID: chatID, token: token}
		})
	}

	switch req.Target {
	case chat.ScrollToBottom, chat.ScrollToIndicator:
		m.viewport.GotoBottom()
	case chat.ScrollToLatest:
		m.scrollToLatest()
	}
	return nil
}

// scrollToLatest shows the start of the newest message when it is taller
// than the viewport, and the bottom otherwise.
func (m *Model) scrollToLatest() {
	if len(m.rowStarts) == 0 {
		m.viewport.GotoBottom()
		return
	}
	start := m.rowStarts[len(m.rowStarts)-1]
	if m.viewport.TotalLineCount()-start > m.viewport.Height {
		m.viewport.SetYOffset(start)
		return
	}
	m.viewport.GotoBottom()
}

func (m *Model) layout() {
	headerHeight := 3
	inputHeight := m.textarea.Height() + 3
	statusHeight := 2
	vpHeight := max(m.height-headerHeight-inputHeight-statusHeight-2, 5)
	contentWidth := max(m.width-4, 20)

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.attachInput.Width = contentWidth - 12
	m.cells = make(map[cellKey]string)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Run starts the TUI and watches the config file for changes while it runs.
func Run(opts Options) error {
	ApplyTheme(opts.Config.TUITheme)

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())

	if opts.ConfigPath != "" {
		w, err := config.NewWatcher(opts.ConfigPath, 250*time.Millisecond, func() {
			p.Send(ConfigChanged())
		})
		if err != nil {
			logger.Warn("config watcher disabled", "error", err)
		} else {
			defer w.Close()
		}
	}

	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}
