package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleGetCase returns the full case file as JSON.
func (s *Server) handleGetCase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID, err := request.RequireString("case_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: case_id"), nil
	}

	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading case: %v", err)), nil
	}
	if c == nil {
		return mcp.NewToolResultError(fmt.Sprintf("case %q not found", caseID)), nil
	}

	sub, err := s.cases.GetSubmission(ctx, caseID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading submission: %v", err)), nil
	}
	atts, err := s.cases.ListAttachments(ctx, caseID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading attachments: %v", err)), nil
	}
	events, err := s.cases.ListEvents(ctx, caseID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading events: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"case":        c,
		"submission":  sub,
		"attachments": atts,
		"events":      events,
	})
}

// handleGetIntelligence returns the current intelligence snapshot for a case.
func (s *Server) handleGetIntelligence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID, err := request.RequireString("case_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: case_id"), nil
	}

	intel, err := s.engine.GetIntelligence(ctx, caseID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading intelligence: %v", err)), nil
	}
	if intel == nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"no intelligence computed yet for case %q; call recompute_case first", caseID,
		)), nil
	}

	return jsonResult(intel)
}

// handleRecomputeCase runs the intelligence pipeline for a case.
func (s *Server) handleRecomputeCase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID, err := request.RequireString("case_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: case_id"), nil
	}
	force := request.GetBool("force", false)

	outcome, err := s.engine.Recompute(ctx, caseID, "manual", "agent", force)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recompute failed: %v", err)), nil
	}

	return jsonResult(outcome)
}

// handleGetHistory returns prior intelligence runs for a case, newest first.
func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID, err := request.RequireString("case_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: case_id"), nil
	}

	limit := request.GetInt("limit", 0)
	if limit < 0 {
		limit = 0
	}

	recs, err := s.history.ListByCase(ctx, caseID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading history: %v", err)), nil
	}

	if request.GetBool("safe_mode", false) {
		for i := range recs {
			recs[i].EvidenceSnapshot = s.red.Apply(recs[i].EvidenceSnapshot)
			recs[i].IntelligencePayload = s.red.Apply(recs[i].IntelligencePayload)
		}
	}

	if len(recs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No intelligence history for case %q.", caseID)), nil
	}

	return jsonResult(recs)
}

// jsonResult marshals v into an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
