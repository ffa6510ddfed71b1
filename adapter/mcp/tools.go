// Package mcp exposes the task service as MCP tools, resources and prompts.
package mcp

import (
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/todo/adapter/cli"
)

// ToolDependencies provides the application MCP tools call into.
type ToolDependencies struct {
	App *cli.App
}

// RegisterCLITools registers MCP tools that mirror CLI functionality.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil || deps.App.Tasks == nil {
		return errors.New("app is required")
	}

	if err := registerTaskTools(srv, deps); err != nil {
		return err
	}
	return registerSyncTools(srv, deps)
}
