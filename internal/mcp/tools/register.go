package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "rr_events",
		Description: "List the events of the RACE RESULT account. Returns {events: [{id, name, date, end_date, location, owner, participants}], total}. Use the id as event_id in the query tools.",
	}, ToolEvents(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "rr_whoami",
		Description: "Show the logged-in account (customer number, user name) and the session state.",
	}, ToolWhoAmI(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "rr_tables",
		Description: "List the tables rr_count, rr_list and rr_distinct accept, with their typed columns and paging dialect.",
	}, ToolTables(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "rr_count",
		Description: "Count the rows of a table of an event. Use filter for a filter expression such as [Contest]=1, or bib/pid for one participant.",
	}, ToolCount(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "rr_list",
		Description: "List rows of a table of an event as objects keyed by column name. Values are typed per the table schema (decimals as numbers, dates as YYYY-MM-DD). Results are capped at RR_MAX_ROWS; truncated is set when more rows matched. Set all=true to fetch every page concurrently. Set jq to post-process the row array, e.g. 'map(select(.Finished)) | length'.",
	}, ToolList(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "rr_distinct",
		Description: "Return the distinct values of one column of a table of an event, in server order.",
	}, ToolDistinct(d))
}
