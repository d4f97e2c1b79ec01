package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleExploreEvent serves the event exploration guide.
func HandleExploreEvent(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		eventID := req.Params.Arguments["event_id"]
		if eventID == "" {
			eventID = cfg.DefaultEvent
		}
		question := req.Params.Arguments["question"]

		var sb strings.Builder
		sb.WriteString("# Exploring a RACE RESULT Event\n\n")

		switch {
		case eventID != "":
			fmt.Fprintf(&sb, "Event: `%s`. Pass it as `event_id` or rely on the default.\n\n", eventID)
		default:
			sb.WriteString("No event selected. Call `rr_events` first (filter with `name` or `year`) and pick an `id`.\n\n")
		}
		if question != "" {
			fmt.Fprintf(&sb, "Question: %s\n\n", question)
		}

		sb.WriteString("## Which Tool\n\n")
		sb.WriteString("| Goal | Tool | Example |\n")
		sb.WriteString("|------|------|--------|\n")
		sb.WriteString("| How many rows match | `rr_count` | `rr_count(table: \"participants\", filter: \"[Contest]=1\")` |\n")
		sb.WriteString("| Which values a column takes | `rr_distinct` | `rr_distinct(table: \"rawdata\", column: \"DecoderID\")` |\n")
		sb.WriteString("| Look at rows | `rr_list` | `rr_list(table: \"participants\", fields: [\"Bib\", \"Lastname\"], limit: 20)` |\n")
		sb.WriteString("| Aggregate rows | `rr_list` + `jq` | `jq: \"group_by(.Contest) | map({contest: .[0].Contest, n: length})\"` |\n")
		sb.WriteString("| One participant | any query tool | `bib: 42` or `pid: 17` |\n")

		if len(cfg.Tables) > 0 {
			fmt.Fprintf(&sb, "\nTables: %s. Call `rr_tables` for their typed columns.\n", strings.Join(cfg.Tables, ", "))
		}

		sb.WriteString("\n**Key rules**:\n")
		sb.WriteString("- Count before listing; `rr_count` is one cheap round trip\n")
		fmt.Fprintf(&sb, "- `rr_list` returns at most %d rows; check `truncated` and narrow the filter or page with `offset`\n", cfg.MaxRows)
		sb.WriteString("- `all: true` fetches every page concurrently but is still capped\n")
		sb.WriteString("- Filter expressions use square-bracket fields: `[Status]=0 AND [Contest]=2`\n")
		sb.WriteString("- Decimal values are numbers with up to 4 places; times are seconds\n")
		sb.WriteString("- `SESSION_EXPIRED` or `AUTH_REQUIRED` errors mean the server credentials need attention\n")

		return &sdkmcp.GetPromptResult{
			Description: "Event exploration guide",
			Messages: []*sdkmcp.PromptMessage{
				{Role: "user", Content: &sdkmcp.TextContent{Text: sb.String()}},
			},
		}, nil
	}
}
