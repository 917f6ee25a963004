package commands

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/llmchat/internal/config"
)

func newPersonaCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage chat personas",
		Long: `View and manage personas: named system messages, optionally bound to a
service, that new chats can start from.`,
	}

	var (
		description string
		service     string
		system      string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonaAdd(deps, config.Persona{
				Name:          args[0],
				Description:   description,
				ServiceID:     service,
				SystemMessage: system,
			})
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "Short description")
	add.Flags().StringVarP(&service, "service", "s", "", "Service new chats use")
	add.Flags().StringVarP(&system, "system", "m", "", "System message (read from stdin when empty)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List available personas",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPersonaList(deps)
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Show persona details",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPersonaShow(deps, args[0])
			},
		},
		add,
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a persona",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updatePersonas(deps, func(set *config.PersonaSet) (string, error) {
					return fmt.Sprintf("Persona '%s' deleted.", args[0]), set.Remove(args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "default <name>",
			Short: "Set default persona",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updatePersonas(deps, func(set *config.PersonaSet) (string, error) {
					if _, ok := set.Find(args[0]); !ok {
						return "", fmt.Errorf("persona '%s' not found", args[0])
					}
					set.DefaultPersona = args[0]
					return fmt.Sprintf("Default persona set to '%s'.", args[0]), nil
				})
			},
		},
	)
	return cmd
}

func loadPersonas(deps *Dependencies) (*config.PersonaSet, string, error) {
	path, err := deps.personasPath()
	if err != nil {
		return nil, "", err
	}
	set, err := config.LoadPersonas(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load personas: %w", err)
	}
	return set, path, nil
}

// updatePersonas applies change to the persona file and prints its message.
func updatePersonas(deps *Dependencies, change func(*config.PersonaSet) (string, error)) error {
	set, path, err := loadPersonas(deps)
	if err != nil {
		return err
	}
	msg, err := change(set)
	if err != nil {
		return err
	}
	if err := config.SavePersonas(path, set); err != nil {
		return fmt.Errorf("failed to save personas: %w", err)
	}
	fmt.Fprintln(deps.Stdout, msg)
	return nil
}

func runPersonaList(deps *Dependencies) error {
	set, _, err := loadPersonas(deps)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tDESCRIPTION\tSERVICE\tDEFAULT")
	_, _ = fmt.Fprintln(w, "----\t-----------\t-------\t-------")

	for _, p := range set.Personas {
		isDefault := ""
		if p.Name == set.DefaultPersona {
			isDefault = "✓"
		}
		service := p.ServiceID
		if service == "" {
			service = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Description, service, isDefault)
	}

	return w.Flush()
}

func runPersonaShow(deps *Dependencies, name string) error {
	set, _, err := loadPersonas(deps)
	if err != nil {
		return err
	}
	p, ok := set.Find(name)
	if !ok {
		return fmt.Errorf("persona '%s' not found", name)
	}

	fmt.Fprintf(deps.Stdout, "Name: %s\n", p.Name)
	fmt.Fprintf(deps.Stdout, "Description: %s\n", p.Description)
	if p.ServiceID != "" {
		fmt.Fprintf(deps.Stdout, "Service: %s\n", p.ServiceID)
	}
	fmt.Fprintf(deps.Stdout, "\nSystem Message:\n%s\n", p.SystemMessage)
	return nil
}

func runPersonaAdd(deps *Dependencies, p config.Persona) error {
	if p.ServiceID != "" {
		if _, ok := deps.cfg.FindService(p.ServiceID); !ok {
			return fmt.Errorf("unknown service: %s", p.ServiceID)
		}
	}

	if p.SystemMessage == "" && deps.Stdin != nil {
		fmt.Fprintln(deps.Stderr, "Enter system message (end with an empty line):")
		reader := bufio.NewReader(deps.Stdin)
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			line = strings.TrimRight(line, "\n\r")
			if line == "" {
				break
			}
			lines = append(lines, line)
			if err != nil {
				break
			}
		}
		p.SystemMessage = strings.Join(lines, "\n")
	}

	return updatePersonas(deps, func(set *config.PersonaSet) (string, error) {
		return fmt.Sprintf("Persona '%s' saved.", p.Name), set.Add(p)
	})
}
