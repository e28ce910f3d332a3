package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/calprompt/internal/tools/date_tools"
)

func newDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date [tool] [name=value]...",
		Short: "Run a date tool",
		Long: `Run one of the date tools the reasoning backend uses and print its
JSON result. Without arguments the tool names are listed.

Examples:
  calprompt date get_nth_weekday_of_month year=2026 month=1 weekday=vendredi nth=2
  calprompt date get_relative_date base_date=2026-03-15 offset=-3 unit=weeks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range date_tools.Names() {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			}

			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}
			res := date_tools.Run(args[0], toolArgs)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}
}

// parseToolArgs turns name=value pairs into tool arguments. Values stay
// strings; the tools accept numeric strings for integer arguments.
func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q must be name=value", pair)
		}
		args[name] = value
	}
	return args, nil
}
