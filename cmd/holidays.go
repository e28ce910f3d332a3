package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calprompt/internal/config"
	"github.com/teemow/calprompt/internal/holidays"
)

// allZones selects the school holidays of every zone.
const allZones = "all"

func newHolidaysCmd() *cobra.Command {
	var (
		year int
		zone string
		file string
	)

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Print the public and school holidays of a year",
		Long: `Print the French public holidays and the school holidays of one zone
as JSON. Use --zone all to list the school holidays of every zone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("school-file") {
				cfg.SchoolHolidaysFile = file
			}
			table, err := cfg.SchoolTable()
			if err != nil {
				return err
			}

			z, err := selectZone(zone, cfg.DefaultSchoolZone)
			if err != nil {
				return err
			}
			if year == 0 {
				year = time.Now().Year()
			}
			if year < 1583 || year > 9999 {
				return fmt.Errorf("year %d is out of range", year)
			}
			return printJSON(cmd.OutOrStdout(), table.Listing(year, z))
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Year (default: the current year)")
	cmd.Flags().StringVar(&zone, "zone", "", "School zone A, B, C or all (default from DEFAULT_SCHOOL_ZONE)")
	cmd.Flags().StringVar(&file, "school-file", "", "YAML school-holiday table (overrides SCHOOL_HOLIDAYS_FILE)")
	return cmd
}

// selectZone maps the --zone flag to a zone. An empty zone from the result
// lists every zone.
func selectZone(flag string, def holidays.Zone) (holidays.Zone, error) {
	switch strings.TrimSpace(flag) {
	case "":
		return def, nil
	case allZones:
		return "", nil
	default:
		return holidays.ParseZone(flag)
	}
}
