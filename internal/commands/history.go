package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/models"
)

func newHistoryCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage chat history",
		Long: `View and manage your local chat history.

Commands taking a <ref> accept:
` + history.ListAliases(),
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all chats",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHistoryList(deps)
			},
		},
		&cobra.Command{
			Use:   "show <ref>",
			Short: "Show a chat",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHistoryShow(deps, args[0])
			},
		},
		&cobra.Command{
			Use:   "delete <ref>",
			Short: "Delete a chat",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHistoryDelete(deps, args[0])
			},
		},
		newHistoryClearCmd(deps),
		newHistoryExportCmd(deps),
		newHistoryPinCmd(deps, true),
		newHistoryPinCmd(deps, false),
		newHistorySearchCmd(deps),
		newHistoryImportCmd(deps),
	)
	return cmd
}

func runHistoryList(deps *Dependencies) error {
	repo, err := deps.repository()
	if err != nil {
		return err
	}

	chats, err := repo.ListChats()
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	if len(chats) == 0 {
		fmt.Fprintln(deps.Stdout, "No chats found.")
		return nil
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tSERVICE\tMESSAGES\tUPDATED")
	_, _ = fmt.Fprintln(w, "-\t--\t-----\t-------\t--------\t-------")

	for i, c := range chats {
		title := runewidth.Truncate(c.Title(), 40, "...")
		if c.IsPinned {
			title = "★ " + title
		}
		service := c.APIServiceID
		if service == "" {
			service = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			i+1, c.ID, title, service, len(c.Messages), humanize.Time(c.UpdatedAt))
	}

	return w.Flush()
}

func resolveChat(deps *Dependencies, ref string) (history.Repository, *models.Chat, error) {
	repo, err := deps.repository()
	if err != nil {
		return nil, nil, err
	}
	c, err := history.NewResolver(repo).ResolveChat(ref)
	if err != nil {
		return nil, nil, fmt.Errorf("chat not found: %w", err)
	}
	return repo, c, nil
}

func runHistoryShow(deps *Dependencies, ref string) error {
	_, c, err := resolveChat(deps, ref)
	if err != nil {
		return err
	}

	out := deps.Stdout
	fmt.Fprintf(out, "ID: %s\n", c.ID)
	fmt.Fprintf(out, "Title: %s\n", c.Title())
	if c.APIServiceID != "" {
		fmt.Fprintf(out, "Service: %s\n", c.APIServiceID)
	}
	fmt.Fprintf(out, "Created: %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated: %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Messages: %d\n", len(c.Messages))
	if c.SystemMessage != "" {
		fmt.Fprintf(out, "System: %s\n", c.SystemMessage)
	}
	fmt.Fprintln(out)

	for _, msg := range c.SortedMessages() {
		role := "You"
		if !msg.Own {
			role = "Assistant"
		}
		fmt.Fprintf(out, "[%d] %s (%s):\n", msg.ID, role, msg.Timestamp.Format("15:04"))

		content := models.PlainText(msg.Body)
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Fprintf(out, "  %s\n\n", content)
	}

	return nil
}

func runHistoryDelete(deps *Dependencies, ref string) error {
	repo, c, err := resolveChat(deps, ref)
	if err != nil {
		return err
	}

	if err := repo.DeleteChat(c.ID); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	fmt.Fprintf(deps.Stdout, "Deleted chat: %s\n", c.Title())
	return nil
}

func newHistoryClearCmd(deps *Dependencies) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete all chats without --force")
			}
			repo, err := deps.repository()
			if err != nil {
				return err
			}
			if err := repo.ClearAll(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(deps.Stdout, "All chats deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion of every chat")
	return cmd
}

func newHistoryExportCmd(deps *Dependencies) *cobra.Command {
	var (
		format   string
		output   string
		thinking bool
		noSystem bool
	)

	cmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Export a chat as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, c, err := resolveChat(deps, args[0])
			if err != nil {
				return err
			}

			opts := history.DefaultExportOptions()
			opts.IncludeThinking = thinking
			opts.IncludeSystemMessage = !noSystem

			var data []byte
			switch history.ExportFormat(strings.ToLower(format)) {
			case history.ExportFormatMarkdown, "md":
				text, err := history.ExportMarkdown(repo, c.ID, opts)
				if err != nil {
					return err
				}
				data = []byte(text)
			case history.ExportFormatJSON:
				data, err = history.ExportJSON(repo, c.ID, opts)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format: %s (use markdown or json)", format)
			}

			if output == "" {
				_, err := deps.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(deps.Stderr, "Exported %s to %s\n", c.Title(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "F", "markdown", "Export format (markdown, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&thinking, "thinking", false, "Keep <think> blocks in replies")
	cmd.Flags().BoolVar(&noSystem, "no-system", false, "Leave out the system message")
	return cmd
}

func newHistoryPinCmd(deps *Dependencies, pin bool) *cobra.Command {
	use, short, done := "pin <ref>", "Pin a chat to the top of the list", "Pinned"
	if !pin {
		use, short, done = "unpin <ref>", "Unpin a chat", "Unpinned"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, c, err := resolveChat(deps, args[0])
			if err != nil {
				return err
			}
			if err := repo.SetPinned(c.ID, pin); err != nil {
				return fmt.Errorf("failed to update chat: %w", err)
			}
			fmt.Fprintf(deps.Stdout, "%s chat: %s\n", done, c.Title())
			return nil
		},
	}
}

func newHistorySearchCmd(deps *Dependencies) *cobra.Command {
	var titlesOnly bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search chat titles and messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := deps.repository()
			if err != nil {
				return err
			}
			results, err := history.Search(repo, args[0], !titlesOnly)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(results) == 0 {
				fmt.Fprintln(deps.Stdout, "No matches.")
				return nil
			}

			w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tMATCH")
			for _, r := range results {
				snippet := strings.Join(strings.Fields(r.MatchSnippet), " ")
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
					r.Chat.ID, runewidth.Truncate(r.Chat.Title(), 30, "..."), snippet)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&titlesOnly, "titles", false, "Search titles only")
	return cmd
}

func newHistoryImportCmd(deps *Dependencies) *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "import <conversations.json>",
		Short: "Import a ChatGPT data export",
		Long: `Import the conversations.json file of a ChatGPT data export. Each
conversation becomes a chat; only the visible branch and text parts are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if service != "" {
				if _, ok := deps.cfg.FindService(service); !ok {
					return fmt.Errorf("unknown service: %s", service)
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open export: %w", err)
			}
			defer f.Close()

			repo, err := deps.repository()
			if err != nil {
				return err
			}
			n, err := history.ImportChatGPT(repo, f, service)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Fprintf(deps.Stdout, "Imported %d chats.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&service, "service", "s", "", "Bind imported chats to this service")
	return cmd
}
