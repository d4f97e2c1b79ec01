// Package tools contains the MCP tool implementations for the RACE RESULT
// API.
package tools

// MIME type constant.
const MimeJSON = "application/json"
