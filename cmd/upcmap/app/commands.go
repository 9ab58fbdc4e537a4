package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/upcmap/cmd/upcmap/cmd/lookup"
	"github.com/agentstation/upcmap/cmd/upcmap/cmd/sources"
)

// CreateLookupCommand creates the lookup command with app dependencies.
func (a *App) CreateLookupCommand() *cobra.Command {
	return lookup.NewCommand(a)
}

// CreateSourcesCommand creates the sources command with app dependencies.
func (a *App) CreateSourcesCommand() *cobra.Command {
	return sources.NewCommand(a)
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("upcmap %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
