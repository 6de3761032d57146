package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xmin-02/sumone/internal/logger"
)

// NewTextResult creates a CallToolResult with text content
func NewTextResult(text string) *mcp_sdk.CallToolResult {
	return &mcp_sdk.CallToolResult{
		Content: []mcp_sdk.Content{
			&mcp_sdk.TextContent{Text: text},
		},
	}
}

// NewErrorResult creates a CallToolResult indicating an error
func NewErrorResult(msg string) *mcp_sdk.CallToolResult {
	return &mcp_sdk.CallToolResult{
		IsError: true,
		Content: []mcp_sdk.Content{
			&mcp_sdk.TextContent{Text: msg},
		},
	}
}

// actionError returns a formatted error for invalid actions
func actionError(tool, action string, valid []string) error {
	return fmt.Errorf("unknown action '%s' for %s tool; valid actions: %s", action, tool, strings.Join(valid, ", "))
}

// missingActionError returns an error for missing action parameter
func missingActionError(tool string, valid []string) error {
	return fmt.Errorf("action parameter is required for %s tool; valid actions: %s", tool, strings.Join(valid, ", "))
}

// requestID returns the HTTP request id attached by the logging middleware
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(logger.ContextKeyRequestID).(string)
	return id
}
