package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "explore_event",
		Description: "RECOMMENDED: Explore the participants, raw data and history of a RACE RESULT event. Start here - explains which tool answers which question.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "event_id",
				Description: "Event to explore (default: RR_EVENT)",
				Required:    false,
			},
			{
				Name:        "question",
				Description: "What you want to find out, e.g. 'how many finishers per contest'",
				Required:    false,
			},
		},
	}, HandleExploreEvent(cfg))
}
