package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calprompt application
var rootCmd = &cobra.Command{
	Use:   "calprompt",
	Short: "Plans calendars from natural-language instructions",
	Long: `calprompt turns instructions such as "training every Monday in March,
except during school holidays" into calendar events.

It can run as:
  - An HTTP API with an MCP endpoint (serve)
  - An MCP server over stdio for AI assistants (serve --transport stdio)
  - A set of offline helpers for holidays and date arithmetic`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calprompt version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCalendarCmd())
	rootCmd.AddCommand(newHolidaysCmd())
	rootCmd.AddCommand(newDateCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "calprompt version %s\n", version)
		},
	}
}
