// Package prompts contains MCP prompt implementations for the RACE RESULT
// API.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	DefaultEvent string   // RR_EVENT, may be empty
	Tables       []string // queryable table names
	MaxRows      int
}
