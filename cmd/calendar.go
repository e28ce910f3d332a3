package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/calprompt/internal/config"
	"github.com/teemow/calprompt/internal/ics"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/server"
)

// stackRunner opens the configured stack for the duration of one command.
type stackRunner func(cmd *cobra.Command, fn func(ctx context.Context, st *stack) error) error

func newCalendarCmd() *cobra.Command {
	var (
		databaseURL string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Create calendars and run instructions against them",
		Long: `Work with calendars stored in PostgreSQL without starting the server.
The same environment as serve applies; DATABASE_URL is required.`,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	run := func(cmd *cobra.Command, fn func(ctx context.Context, st *stack) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if databaseURL != "" {
			cfg.DatabaseURL = databaseURL
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sc, err := server.NewServerContext(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = sc.Shutdown() }()

		st, err := buildStack(ctx, cfg, logging.NewLogger(cmd.ErrOrStderr(), debug), sc, true)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return fn(ctx, st)
	}

	cmd.AddCommand(
		newCalendarCreateCmd(run),
		newCalendarPromptCmd(run),
		newCalendarUndoCmd(run),
		newCalendarEventsCmd(run),
		newCalendarExportCmd(run),
		newCalendarSnapshotCmd(run),
		newCalendarRestoreCmd(run),
	)
	return cmd
}

func newCalendarCreateCmd(run stackRunner) *cobra.Command {
	var name, zone string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, st *stack) error {
				cal, err := st.service.CreateCalendar(ctx, name, zone)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cal)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Calendar name")
	cmd.Flags().StringVar(&zone, "zone", "", "School zone A, B or C (default from DEFAULT_SCHOOL_ZONE)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCalendarPromptCmd(run stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <calendar-id> <instruction>...",
		Short: "Interpret an instruction and apply it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, st *stack) error {
				out, err := st.service.ProcessPrompt(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newCalendarUndoCmd(run stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <calendar-id>",
		Short: "Revert the most recent change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, st *stack) error {
				out, err := st.service.Undo(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newCalendarEventsCmd(run stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "events <calendar-id>",
		Short: "List the events of a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, st *stack) error {
				events, err := st.service.ListEvents(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), events)
			})
		},
	}
}

func newCalendarExportCmd(run stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "export <calendar-id>",
		Short: "Print the calendar as iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, st *stack) error {
				cal, err := st.service.GetCalendar(ctx, args[0])
				if err != nil {
					return err
				}
				events, err := st.service.ListEvents(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), ics.Export(cal, events))
				return err
			})
		},
	}
}

func newCalendarSnapshotCmd(run stackRunner) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "snapshot <calendar-id>",
		Short: "Save the current events and types under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, st *stack) error {
				snap, err := st.service.CreateSnapshot(ctx, args[0], name)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", snap.ID, snap.Name())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Snapshot name (default: \"Snapshot\" and the date)")
	return cmd
}

func newCalendarRestoreCmd(run stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <calendar-id> <snapshot-id>",
		Short: "Replace the events and types with a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, st *stack) error {
				out, err := st.service.RestoreSnapshot(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
