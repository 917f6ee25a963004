package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/render"
)

func newConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change configuration",
		Long: `Show and change the llmchat configuration.

The config file is JSON. Environment variables LLMCHAT_DEFAULT_SERVICE,
LLMCHAT_STORAGE, LLMCHAT_LOG_LEVEL and LLMCHAT_THEME override it, and
OPENAI_API_KEY fills in the key of OpenAI services that have none. A .env
file in the working directory or the config directory is loaded first.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(deps)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := deps.configPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(deps.Stdout, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the current configuration to the config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := deps.configPath()
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config file already exists: %s", path)
				}
				if err := config.SaveConfigTo(path, deps.cfg); err != nil {
					return err
				}
				fmt.Fprintf(deps.Stdout, "Wrote %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set-default <service>",
			Short: "Set the service used by chats without one",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSetDefault(deps, args[0])
			},
		},
		&cobra.Command{
			Use:   "themes",
			Short: "List markdown styles and UI palettes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigThemes(deps)
			},
		},
	)
	return cmd
}

func runConfigShow(deps *Dependencies) error {
	cfg := deps.cfg
	cfg.Services = append(cfg.Services[:0:0], cfg.Services...)
	for i := range cfg.Services {
		cfg.Services[i].APIKey = maskKey(cfg.Services[i].APIKey)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(deps.Stdout, string(data))
	return nil
}

// maskKey keeps the last four characters of an API key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func runConfigSetDefault(deps *Dependencies, id string) error {
	path, err := deps.configPath()
	if err != nil {
		return err
	}
	cfg := deps.cfg
	if err := cfg.SetDefaultService(id); err != nil {
		return err
	}
	if err := config.SaveConfigTo(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	deps.cfg = cfg
	fmt.Fprintf(deps.Stdout, "Default service set to %s\n", id)
	return nil
}

func runConfigThemes(deps *Dependencies) error {
	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	style := deps.cfg.Markdown.Style
	_, _ = fmt.Fprintln(w, "MARKDOWN STYLE\tDESCRIPTION\tACTIVE")
	for _, s := range render.AvailableStyles() {
		active := ""
		if s.Name == style {
			active = "✓"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Description, active)
	}
	if style != "" && !render.IsBuiltinStyle(style) {
		_, _ = fmt.Fprintf(w, "%s\tstyle file\t✓\n", style)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "UI PALETTE\tACTIVE")
	for _, p := range render.Palettes() {
		active := ""
		if strings.EqualFold(p.Name, deps.cfg.TUITheme) || (deps.cfg.TUITheme == "" && p.Name == render.TokyoNight.Name) {
			active = "✓"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", p.Name, active)
	}
	return w.Flush()
}

func newServicesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List configured API services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(deps.cfg.Services) == 0 {
				fmt.Fprintln(deps.Stdout, "No services configured. Add one to the config file.")
				return nil
			}

			w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tMODEL\tURL\tSTREAM\tIMAGES\tDEFAULT")
			for _, s := range deps.cfg.Services {
				def := ""
				if s.ID == deps.cfg.DefaultService {
					def = "✓"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.DisplayName(), s.EffectiveModel(), s.EffectiveURL(),
					yesNo(s.UseStreamResponse), yesNo(s.ImageUploadsAllowed), def)
			}
			return w.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
