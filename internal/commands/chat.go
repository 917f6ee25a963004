package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/tui"
)

func newChatCmd(deps *Dependencies) *cobra.Command {
	var (
		newChat bool
		service string
		persona string
	)

	cmd := &cobra.Command{
		Use:   "chat [ref]",
		Short: "Open the interactive chat UI",
		Long: `Open the interactive chat UI. Without arguments the chat list is shown.

A reference opens a chat directly:
` + history.ListAliases() + `

Keys in a chat: enter send, ctrl+j newline, ctrl+r retry, ctrl+x dismiss error,
ctrl+o attach image, ctrl+e edit system message, ctrl+y copy reply,
ctrl+l chat list, esc quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref string
			if len(args) > 0 {
				ref = args[0]
			}
			return runChat(deps, ref, newChat, service, persona)
		},
	}

	cmd.Flags().BoolVarP(&newChat, "new", "n", false, "Start a new chat")
	cmd.Flags().StringVarP(&service, "service", "s", "", "Service for new chats")
	cmd.Flags().StringVarP(&persona, "persona", "p", "", "Persona for new chats")
	return cmd
}

func runChat(deps *Dependencies, ref string, newChat bool, service, persona string) error {
	if ref != "" && newChat {
		return fmt.Errorf("--new cannot be combined with a chat reference")
	}

	repo, err := deps.repository()
	if err != nil {
		return err
	}
	images, err := deps.imageStore()
	if err != nil {
		return err
	}
	factory, err := deps.clientFactory()
	if err != nil {
		return err
	}
	serviceID, system, err := newChatSettings(deps, service, persona)
	if err != nil {
		return err
	}
	configPath, err := deps.configPath()
	if err != nil {
		return err
	}

	opts := tui.Options{
		Repo:          repo,
		Images:        images,
		Config:        deps.cfg,
		ConfigPath:    configPath,
		NewClient:     factory,
		NewChat:       newChat,
		ServiceID:     serviceID,
		SystemMessage: system,
	}
	if ref != "" {
		id, err := history.NewResolver(repo).Resolve(ref)
		if err != nil {
			return fmt.Errorf("chat not found: %w", err)
		}
		opts.ChatID = id
	}

	return deps.TUI.RunChat(opts)
}
