package date_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/server"
	"github.com/teemow/calprompt/internal/tools/common"
)

// HolidaysURIPrefix prefixes the holidays resource URIs.
const HolidaysURIPrefix = "calendar://holidays/"

// RegisterDateTools registers the date toolkit with the MCP server. Tool
// failures are returned as error results carrying the JSON failure payload.
func RegisterDateTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	for _, t := range catalogue {
		name := t.def.Name
		s.AddTool(t.def, common.InstrumentedToolHandler(name, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleDateTool(name, request)
			}))
	}
	return nil
}

func handleDateTool(name string, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := Run(name, request.GetArguments())
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s result: %w", name, err)
	}
	if !res.Success {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// RegisterHolidayResources exposes public and school holidays per year as
// the calendar://holidays/{year} resource template.
func RegisterHolidayResources(s *mcpserver.MCPServer, table *holidays.SchoolTable, zone holidays.Zone) error {
	template := mcp.NewResourceTemplate(
		HolidaysURIPrefix+"{year}",
		"French holidays",
		mcp.WithTemplateDescription(fmt.Sprintf("Public holidays and zone %s school holidays of a year", zone)),
		mcp.WithTemplateMIMEType("application/json"),
	)

	s.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleHolidays(request, table, zone)
	})
	return nil
}

func handleHolidays(request mcp.ReadResourceRequest, table *holidays.SchoolTable, zone holidays.Zone) ([]mcp.ResourceContents, error) {
	year, err := yearFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.MarshalIndent(table.Listing(year, zone), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal holidays: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func yearFromURI(uri string) (int, error) {
	raw, ok := strings.CutPrefix(uri, HolidaysURIPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected holidays resource URI %q", uri)
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1583 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q in holidays resource URI", raw)
	}
	return year, nil
}
