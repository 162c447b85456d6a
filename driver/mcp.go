package driver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/inqwatch/draft"
	"github.com/hazyhaar/inqwatch/inquiry"
)

// RegisterMCP registers the driver tools on an MCP server, exposing the
// same operations as the control API to an LLM client over stdio.
func (d *Driver) RegisterMCP(srv *mcp.Server) {
	d.registerExtractTool(srv)
	d.registerInquiryTool(srv)
	d.registerFillTool(srv)
	d.registerGateTool(srv)
}

func inputSchema(properties map[string]any, required []string) json.RawMessage {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("driver: marshal input schema: %v", err))
	}
	return data
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res, nil
}

func (d *Driver) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inqwatch_extract",
		Description: "Extract the inquiry from the currently observed page. Returns null when the page carries no inquiry.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	srv.AddTool(tool, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := d.ExtractOnce(ctx)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"inquiry": data})
	})
}

func (d *Driver) registerInquiryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inqwatch_inquiry",
		Description: "Return the last extracted inquiry and the rendered system prompt for answering it.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	srv.AddTool(tool, func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data := d.Current()
		if data == nil {
			return errorResult(fmt.Errorf("inqwatch_inquiry: no inquiry extracted yet"))
		}
		return textResult(map[string]any{
			"inquiry": data,
			"prompt":  inquiry.BuildSystemPrompt(data, ""),
		})
	})
}

type fillReq struct {
	Content string `json:"content"`
}

func (d *Driver) registerFillTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inqwatch_fill",
		Description: "Write reply content into the page's reply input. Copilot-formatted drafts go through the fill gate and may be blocked.",
		InputSchema: inputSchema(map[string]any{
			"content": map[string]any{"type": "string", "description": "Reply text or full copilot draft"},
		}, []string{"content"}),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r fillReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return errorResult(fmt.Errorf("inqwatch_fill: invalid arguments: %w", err))
		}
		res, err := d.FillDraft(ctx, r.Content)
		if err != nil {
			return errorResult(err)
		}
		return textResult(res)
	})
}

func (d *Driver) registerGateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inqwatch_gate",
		Description: "Evaluate the fill gate over a copilot draft without touching the page.",
		InputSchema: inputSchema(map[string]any{
			"content": map[string]any{"type": "string", "description": "Full copilot draft text"},
		}, []string{"content"}),
	}
	srv.AddTool(tool, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r fillReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return errorResult(fmt.Errorf("inqwatch_gate: invalid arguments: %w", err))
		}
		return textResult(draft.CheckFillGate(r.Content, d.cfg.Gate))
	})
}
