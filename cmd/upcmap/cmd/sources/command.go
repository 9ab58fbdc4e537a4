// Package sources implements the sources command.
package sources

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/upcmap"
	"github.com/agentstation/upcmap/internal/cmd/output"
	"github.com/agentstation/upcmap/internal/cmd/table"
)

// AppContext defines what the sources command needs from the app.
type AppContext interface {
	Upcmap() (upcmap.Upcmap, error)
	OutputFormat() string
}

// NewCommand creates the sources command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "sources",
		GroupID: "core",
		Short:   "List configured data sources",
		Long: `Sources lists the data sources a lookup queries, in precedence order,
with the host each one calls and whether its credential is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := app.Upcmap()
			if err != nil {
				return err
			}

			format, err := output.ParseFormat(string(output.DetectFormat(app.OutputFormat())))
			if err != nil {
				return err
			}

			infos := u.Describe()
			return output.Print(cmd.OutOrStdout(), format, infos, func(bool) table.Data {
				return table.SourcesToTableData(infos)
			})
		},
	}
}
