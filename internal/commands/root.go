// Package commands provides CLI commands for llmchat.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

var (
	rootDeps = NewDependencies()
	rootCmd  = NewRootCmd(rootDeps)
)

// NewRootCmd builds the command tree around deps.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	var (
		logLevel string
		fileFlag string
		ask      askOptions
	)

	cmd := &cobra.Command{
		Use:   "llmchat [prompt]",
		Short: "Terminal chat client for OpenAI-compatible APIs",
		Long: `llmchat is a terminal chat client for OpenAI-compatible completion APIs.
Chats are stored locally and can be continued at any time.

Examples:
  llmchat chat                          Open the chat list
  llmchat chat --new --persona coder    Start a new chat
  llmchat chat @last                    Continue the most recent chat
  llmchat "What is Go?"                 Send a single prompt
  llmchat -f prompt.md                  Read prompt from file
  cat prompt.md | llmchat               Read prompt from stdin
  llmchat "Hello" -o response.md        Save response to file`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.setup(logLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			deps.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "llmchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			if fileFlag != "" {
				data, err := os.ReadFile(fileFlag)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				return runAsk(deps, string(data), ask)
			}

			if len(args) > 0 {
				return runAsk(deps, args[0], ask)
			}

			if hasStdin(deps.Stdin) {
				data, err := io.ReadAll(deps.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return runAsk(deps, string(data), ask)
			}

			return cmd.Help()
		},
	}
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")
	ask.bind(cmd)

	cmd.AddCommand(
		newChatCmd(deps),
		newAskCmd(deps),
		newHistoryCmd(deps),
		newConfigCmd(deps),
		newServicesCmd(deps),
		newPersonaCmd(deps),
	)
	return cmd
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// PersistentPostRun is skipped when a command fails.
		rootDeps.close()
		PrintError(err)
		os.Exit(1)
	}
}

// hasStdin reports whether r is piped input rather than a terminal.
func hasStdin(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	if term.IsTerminal(int(f.Fd())) {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}
