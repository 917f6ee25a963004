package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/llmchat/internal/api"
	"github.com/diogo/llmchat/internal/chat"
	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/logger"
	"github.com/diogo/llmchat/internal/models"
	"github.com/diogo/llmchat/internal/render"
)

type askOptions struct {
	service string
	persona string
	chatRef string
	image   string
	output  string
	stream  string // "", "on" or "off"
	raw     bool
	verbose bool
}

func (o *askOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.service, "service", "s", "", "Service to use (see 'llmchat services')")
	f.StringVarP(&o.persona, "persona", "p", "", "Persona for a new chat")
	f.StringVarP(&o.chatRef, "chat", "c", "", "Continue an existing chat (@last, index, id or title)")
	f.StringVarP(&o.image, "image", "i", "", "Path to an image to attach")
	f.StringVarP(&o.output, "output", "o", "", "Save response to file")
	f.StringVar(&o.stream, "stream", "", "Override streaming (on, off)")
	f.BoolVar(&o.raw, "raw", false, "Print only the response text")
	f.BoolVar(&o.verbose, "verbose", false, "Print request details to stderr")
}

func newAskCmd(deps *Dependencies) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a single prompt and print the reply",
		Long: `Send a single prompt without opening the chat UI. The exchange is stored
as a chat like any other, so it can be continued later with 'llmchat chat'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runAsk(deps, args[0], opts)
			}
			if hasStdin(deps.Stdin) {
				data, err := io.ReadAll(deps.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return runAsk(deps, string(data), opts)
			}
			return fmt.Errorf("prompt cannot be empty")
		},
	}
	opts.bind(cmd)
	return cmd
}

// runAsk sends prompt through a coordinator on the calling goroutine and
// prints the reply.
func runAsk(deps *Dependencies, prompt string, opts askOptions) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && opts.image == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	decorate := !opts.raw && isTTY(deps.Stdout)
	repo, err := deps.repository()
	if err != nil {
		return err
	}

	c, err := askChat(deps, repo, opts)
	if err != nil {
		return err
	}

	factory, err := deps.clientFactory()
	if err != nil {
		return err
	}
	svc, client := chat.Bind(deps.cfg, c, factory)
	if svc != nil {
		switch opts.stream {
		case "on":
			svc.UseStreamResponse = true
		case "off":
			svc.UseStreamResponse = false
		case "":
		default:
			return fmt.Errorf("invalid --stream value %q (use on or off)", opts.stream)
		}
	}
	vm := chat.NewViewModel(repo, c, svc, client)

	var images chat.AttachmentStore
	if store, err := deps.imageStore(); err == nil {
		images = store
	}
	coord := chat.NewCoordinator(vm, images, nil)

	if opts.image != "" {
		att, err := models.NewAttachment(opts.image)
		if err != nil {
			return fmt.Errorf("failed to attach image: %w", err)
		}
		if err := coord.AddAttachment(att); err != nil {
			return err
		}
	}

	if opts.verbose {
		printVerbose(deps, vm, prompt)
	}

	coord.SetInput(prompt)
	d, err := coord.Send(false)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("prompt cannot be empty")
	}

	var spin *spinner
	if decorate && !d.Streaming {
		spin = newSpinner(deps.Stderr, "Generating response")
		spin.start()
	}

	printChunks := d.Streaming && opts.output == ""
	start := time.Now()
	var title chat.TitleJob
	d.Run(context.Background(), func(ev chat.Event) {
		if chunk, ok := ev.(chat.ChunkEvent); ok && printChunks {
			fmt.Fprint(deps.Stdout, chunk.Text)
		}
		if out := coord.Apply(ev); out.Title != nil {
			title = out.Title
		}
	})
	if opts.verbose {
		fmt.Fprintf(deps.Stderr, "[verbose] Request took %s\n", time.Since(start).Round(time.Millisecond))
	}

	if state := coord.Error(); state != nil {
		if spin != nil {
			spin.stopWithError()
		}
		if printChunks {
			fmt.Fprintln(deps.Stdout)
		}
		return state.Err
	}
	if spin != nil {
		spin.stopWithSuccess("Done")
	}

	if title != nil {
		coord.Apply(chat.RunTitle(context.Background(), vm.ChatID(), title))
	}

	reply := lastReply(vm.Messages())
	return printReply(deps, reply, printChunks, decorate, opts)
}

// askChat returns the chat a prompt goes to: an existing one when --chat is
// given, otherwise a new chat set up from --service and --persona.
func askChat(deps *Dependencies, repo history.Repository, opts askOptions) (*models.Chat, error) {
	if opts.chatRef != "" {
		c, err := history.NewResolver(repo).ResolveChat(opts.chatRef)
		if err != nil {
			return nil, fmt.Errorf("chat not found: %w", err)
		}
		return c, nil
	}

	serviceID, system, err := newChatSettings(deps, opts.service, opts.persona)
	if err != nil {
		return nil, err
	}
	return repo.CreateChat(serviceID, system)
}

// newChatSettings resolves the service and system message of a new chat.
// An explicit service wins over the persona's.
func newChatSettings(deps *Dependencies, serviceID, personaName string) (string, string, error) {
	if serviceID != "" {
		if _, ok := deps.cfg.FindService(serviceID); !ok {
			return "", "", fmt.Errorf("unknown service: %s", serviceID)
		}
	}

	path, err := deps.personasPath()
	if err != nil {
		return "", "", err
	}
	set, err := config.LoadPersonas(path)
	if err != nil {
		return "", "", err
	}

	persona := set.Default()
	if personaName != "" {
		p, ok := set.Find(personaName)
		if !ok {
			return "", "", fmt.Errorf("persona not found: %s", personaName)
		}
		persona = p
	}
	if serviceID == "" {
		serviceID = persona.ServiceID
	}

	system := persona.SystemMessage
	if system == "" {
		if svc, ok := deps.cfg.ResolveService(serviceID); ok {
			system = svc.DefaultSystemMessage
		}
	}
	logger.Debug("new chat settings", "service", serviceID, "persona", persona.Name)
	return serviceID, system, nil
}

func lastReply(msgs []models.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].Own {
			return msgs[i].Body
		}
	}
	return ""
}

func printReply(deps *Dependencies, reply string, streamed, decorate bool, opts askOptions) error {
	if deps.cfg.CopyToClipboard && decorate {
		if err := clipboard.WriteAll(models.FilterThinking(reply)); err != nil {
			fmt.Fprintln(deps.Stderr, warnStyle.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else {
			fmt.Fprintln(deps.Stderr, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(reply), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if decorate {
			fmt.Fprintln(deps.Stderr, successStyle.Render("✓ Response saved to "+opts.output))
		}
		return nil
	}

	if streamed {
		fmt.Fprintln(deps.Stdout)
		return nil
	}
	if !decorate {
		fmt.Fprint(deps.Stdout, reply)
		return nil
	}

	bubbleWidth := min(max(terminalWidth(deps.Stdout)-4, 40), 120)
	contentWidth := bubbleWidth - 4
	rendered := render.Message(reply, true, render.OptionsFromConfig(deps.cfg.Markdown, contentWidth))

	fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("✦ Assistant"))
	fmt.Fprintln(deps.Stdout, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	return nil
}

func printVerbose(deps *Dependencies, vm *chat.ViewModel, prompt string) {
	svc, ok := vm.Service()
	if !ok {
		return
	}
	fmt.Fprintf(deps.Stderr, "[verbose] Service: %s (%s)\n", svc.DisplayName(), svc.EffectiveURL())
	fmt.Fprintf(deps.Stderr, "[verbose] Model: %s, streaming: %t\n", svc.EffectiveModel(), svc.UseStreamResponse)

	req, _ := vm.Request(prompt)
	count, exact := api.CountTokens(req)
	approx := ""
	if !exact {
		approx = "~"
	}
	fmt.Fprintf(deps.Stderr, "[verbose] Prompt: %s%d tokens, context %d messages\n", approx, count, req.ContextSize)
}

// terminalWidth returns the width of w when it is a terminal, or 80.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
