package main

import "github.com/diogo/llmchat/internal/commands"

// Set by -ldflags at build time.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	commands.Version = version
	commands.BuildTime = buildTime
	commands.Execute()
}
