package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common task workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("task_review").
		Description("Walk through open tasks, close what is done and tidy up the list.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Task Review",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Help me review my to-do list. Please:

1. Read the open tasks from the todo://tasks/active resource
2. Read the finished ones from todo://tasks/completed

For each open task, ask me whether it is done. Use task.complete for the
ones I confirm. Point out tasks without a title and offer to give them one
with task.save.

When we are finished, offer to remove completed tasks with
task.clear_completed. Only call it after I say yes.`,
						},
					},
				},
			}, nil
		})

	srv.Prompt("task_capture").
		Description("Turn free-form notes into tasks.").
		Argument("notes", "Notes to turn into tasks", true).
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			notes := args["notes"]
			if notes == "" {
				notes = "[Paste the notes to turn into tasks]"
			}

			return &mcp.PromptResult{
				Description: "Task Capture",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: fmt.Sprintf(`Turn these notes into tasks:

%s

Split them into separate actionable items. Give each a short title and put
any detail in the description. Check todo://tasks first so you do not
create duplicates, then show me the list. After I approve it, create each
item with task.save.`, notes),
						},
					},
				},
			}, nil
		})

	return nil
}
