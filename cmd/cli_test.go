package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/config"
	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/server"
	"github.com/teemow/calprompt/internal/tools/date_tools"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	err := cmd.Execute()
	return out.String(), err
}

func TestDateCmd(t *testing.T) {
	t.Run("lists the tools", func(t *testing.T) {
		out, err := execute(t, newDateCmd())
		require.NoError(t, err)
		for _, name := range date_tools.Names() {
			assert.Contains(t, out, name+"\n")
		}
	})

	t.Run("runs a tool", func(t *testing.T) {
		out, err := execute(t, newDateCmd(),
			date_tools.ToolNthWeekdayOfMonth, "year=2026", "month=1", "weekday=vendredi", "nth=2")
		require.NoError(t, err)

		var res dates.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.True(t, res.Success)
		assert.Equal(t, "2026-01-09", res.Date)
	})

	t.Run("failure is printed and returned", func(t *testing.T) {
		out, err := execute(t, newDateCmd(), date_tools.ToolDayOfWeek, "date=2026-02-30")
		require.Error(t, err)

		var res dates.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.False(t, res.Success)
		assert.Equal(t, res.Error, err.Error())
	})

	t.Run("malformed argument", func(t *testing.T) {
		_, err := execute(t, newDateCmd(), date_tools.ToolDayOfWeek, "2026-03-15")
		assert.EqualError(t, err, `argument "2026-03-15" must be name=value`)
	})
}

func TestParseToolArgs(t *testing.T) {
	args, err := parseToolArgs([]string{"year=2026", " unit =weeks", "note=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"year":  "2026",
		"unit":  "weeks",
		"note":  "a=b",
		"empty": "",
	}, args)

	_, err = parseToolArgs([]string{"=2026"})
	assert.Error(t, err)
}

func TestHolidaysCmd(t *testing.T) {
	t.Setenv("DEFAULT_SCHOOL_ZONE", "")
	t.Setenv("SCHOOL_HOLIDAYS_FILE", "")

	t.Run("one zone", func(t *testing.T) {
		out, err := execute(t, newHolidaysCmd(), "--year", "2026", "--zone", "a")
		require.NoError(t, err)

		var listing holidays.Listing
		require.NoError(t, json.Unmarshal([]byte(out), &listing))
		assert.Equal(t, 2026, listing.Year)
		assert.Equal(t, holidays.ZoneA, listing.Zone)
		require.NotEmpty(t, listing.Public)
		assert.Equal(t, "2026-01-01", listing.Public[0].Date)
		for _, s := range listing.School {
			assert.Contains(t, s.Zones, holidays.ZoneA)
		}
	})

	t.Run("all zones", func(t *testing.T) {
		out, err := execute(t, newHolidaysCmd(), "--year", "2026", "--zone", "all")
		require.NoError(t, err)

		var listing holidays.Listing
		require.NoError(t, json.Unmarshal([]byte(out), &listing))
		assert.Empty(t, listing.Zone)
	})

	t.Run("invalid zone", func(t *testing.T) {
		_, err := execute(t, newHolidaysCmd(), "--zone", "Z")
		assert.ErrorIs(t, err, holidays.ErrInvalidZone)
	})

	t.Run("year out of range", func(t *testing.T) {
		_, err := execute(t, newHolidaysCmd(), "--year", "1200")
		assert.Error(t, err)
	})
}

func TestSelectZone(t *testing.T) {
	tests := []struct {
		flag string
		want holidays.Zone
	}{
		{flag: "", want: holidays.ZoneC},
		{flag: "all", want: ""},
		{flag: "b", want: holidays.ZoneB},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			got, err := selectZone(tt.flag, holidays.ZoneC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, newVersionCmd())
	require.NoError(t, err)
	assert.Equal(t, "calprompt version "+version+"\n", out)
}

func TestBuildStack_Memory(t *testing.T) {
	ctx := context.Background()
	sc, err := server.NewServerContext(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	cfg := &config.Config{DefaultSchoolZone: holidays.ZoneC}
	st, err := buildStack(ctx, cfg, logging.NewLogger(io.Discard, false), sc, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	assert.IsType(t, &calendar.MemoryStore{}, st.store)
	assert.Equal(t, map[string]error{"store": nil}, sc.Ping(ctx))

	cal, err := st.service.CreateCalendar(ctx, "Family", "")
	require.NoError(t, err)
	assert.Equal(t, string(holidays.ZoneC), cal.SchoolZone)
}

func TestBuildStack_RequiresDatabase(t *testing.T) {
	sc, err := server.NewServerContext(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	_, err = buildStack(context.Background(), &config.Config{}, logging.NewLogger(io.Discard, false), sc, true)
	assert.ErrorIs(t, err, errDatabaseRequired)
}

func TestGenerateToolsMarkdown(t *testing.T) {
	sc, err := server.NewServerContext(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	srv := mcpserver.NewMCPServer("calprompt", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, date_tools.RegisterDateTools(srv, sc))

	var tools []mcp.Tool
	for _, st := range srv.ListTools() {
		tools = append(tools, st.Tool)
	}
	md := generateToolsMarkdown(tools)

	assert.Contains(t, md, "# MCP Tools Reference")
	for _, name := range date_tools.Names() {
		assert.Contains(t, md, "### "+name+"\n")
	}
	assert.Contains(t, md, "- `base_date` (required): Reference date as YYYY-MM-DD")
	assert.Contains(t, md, "### "+date_tools.HolidaysURIPrefix+"{year}")
}
