package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/diogo/llmchat/internal/chat"
	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/logger"
	"github.com/diogo/llmchat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(opts tui.Options) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(opts tui.Options) error {
	return tui.Run(opts)
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// DataDir holds the config file, personas, history and the log. Empty
	// means ~/.llmchat.
	DataDir string

	// NewClient builds the completion client of a service. Nil means the
	// OpenAI-compatible client.
	NewClient chat.ClientFactory

	// TUI is the terminal user interface.
	TUI TUIInterface

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	cfg    config.Config
	repo   history.Repository
	images *history.ImageStore
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:    &DefaultTUI{},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (d *Dependencies) dataDir() (string, error) {
	if d.DataDir != "" {
		return d.DataDir, nil
	}
	return config.GetConfigDir()
}

func (d *Dependencies) configPath() (string, error) {
	dir, err := d.dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func (d *Dependencies) personasPath() (string, error) {
	dir, err := d.dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "personas.json"), nil
}

// setup loads .env and the config file and starts logging. It runs before
// every command.
func (d *Dependencies) setup(logLevel string) error {
	dir, err := d.dataDir()
	if err != nil {
		return err
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	path, _ := d.configPath()
	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	d.cfg = cfg

	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if err := logger.Init(logLevel, filepath.Join(dir, "llmchat.log")); err != nil {
		fmt.Fprintf(d.Stderr, "Warning: logging disabled: %v\n", err)
	}
	tui.ApplyTheme(cfg.TUITheme)
	return nil
}

// repository opens the configured message store once.
func (d *Dependencies) repository() (history.Repository, error) {
	if d.repo != nil {
		return d.repo, nil
	}
	dir, err := d.dataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := history.Open(d.cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	d.repo = repo
	return repo, nil
}

func (d *Dependencies) imageStore() (*history.ImageStore, error) {
	if d.images != nil {
		return d.images, nil
	}
	dir, err := d.dataDir()
	if err != nil {
		return nil, err
	}
	images, err := history.NewImageStore(dir)
	if err != nil {
		return nil, err
	}
	d.images = images
	return images, nil
}

func (d *Dependencies) clientFactory() (chat.ClientFactory, error) {
	if d.NewClient != nil {
		return d.NewClient, nil
	}
	images, err := d.imageStore()
	if err != nil {
		return nil, err
	}
	return chat.OpenAIFactory(images), nil
}

// close releases the store and the log file.
func (d *Dependencies) close() {
	if d.repo != nil {
		if err := d.repo.Close(); err != nil {
			logger.Warn("failed to close history", "error", err)
		}
		d.repo = nil
	}
	logger.Close()
}
