package cli

import (
	"github.com/spf13/cobra"

	"github.com/chris-bluera/bluera-knowledge/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine over the Model Context Protocol on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		return mcp.NewServer(a.engine, a.stores).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
