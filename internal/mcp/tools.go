package mcp

import "github.com/mark3labs/mcp-go/mcp"

// getCaseTool defines the get_case MCP tool.
var getCaseTool = mcp.NewTool("get_case",
	mcp.WithDescription("Get a compliance case file including its submission, attachments, and timeline events."),
	mcp.WithString("case_id",
		mcp.Required(),
		mcp.Description("Identifier of the case"),
	),
)

// getIntelligenceTool defines the get_intelligence MCP tool.
var getIntelligenceTool = mcp.NewTool("get_intelligence",
	mcp.WithDescription("Get the current decision intelligence for a case: confidence score and band, gaps, bias flags, rule results, and the reviewer narrative."),
	mcp.WithString("case_id",
		mcp.Required(),
		mcp.Description("Identifier of the case"),
	),
)

// recomputeCaseTool defines the recompute_case MCP tool.
var recomputeCaseTool = mcp.NewTool("recompute_case",
	mcp.WithDescription("Recompute decision intelligence for a case from its current evidence. Returns the run outcome and the fresh intelligence."),
	mcp.WithString("case_id",
		mcp.Required(),
		mcp.Description("Identifier of the case"),
	),
	mcp.WithBoolean("force",
		mcp.Description("Bypass the debounce window and any pending scheduled run"),
	),
)

// getHistoryTool defines the get_history MCP tool.
var getHistoryTool = mcp.NewTool("get_history",
	mcp.WithDescription("Get the append-only intelligence history for a case, newest first. Each record carries the evidence hash for the run."),
	mcp.WithString("case_id",
		mcp.Required(),
		mcp.Description("Identifier of the case"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of records to return (default all)"),
	),
	mcp.WithBoolean("safe_mode",
		mcp.Description("Redact free-text evidence from snapshots and payloads"),
	),
)
