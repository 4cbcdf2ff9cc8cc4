package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/milk9111/tilecanvas/gen"
	"github.com/milk9111/tilecanvas/session"
)

const mcpInstructions = `Tools edit a shared tile canvas. Rows are y and columns are x.
Regions are inclusive on both corners. Generated content is written from (0,0).`

// Tools holds the MCP tool handlers for one session.
type Tools struct {
	sess *session.Session
}

func NewTools(sess *session.Session) *Tools { return &Tools{sess: sess} }

// NewMCPServer registers the canvas tools on a fresh MCP server.
func NewMCPServer(sess *session.Session, version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"tilecanvas",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(mcpInstructions),
	)
	t := NewTools(sess)
	s.AddTool(paintRegionTool(), t.PaintRegion)
	s.AddTool(eraseRegionTool(), t.EraseRegion)
	s.AddTool(generateTool(), t.Generate)
	return s
}

func regionParams(extra ...mcp.ToolOption) []mcp.ToolOption {
	return append([]mcp.ToolOption{
		mcp.WithNumber("startRow", mcp.Required(), mcp.Description("First row (y) of the region")),
		mcp.WithNumber("startCol", mcp.Required(), mcp.Description("First column (x) of the region")),
		mcp.WithNumber("endRow", mcp.Required(), mcp.Description("Last row (y), inclusive")),
		mcp.WithNumber("endCol", mcp.Required(), mcp.Description("Last column (x), inclusive")),
	}, extra...)
}

func paintRegionTool() mcp.Tool {
	opts := regionParams(
		mcp.WithDescription("Paint every tile in a rectangle with one tile type. Neighbours are auto-tiled."),
		mcp.WithString("tileType", mcp.Required(), mcp.Description("Tile type to paint, e.g. grass")),
	)
	return mcp.NewTool("paintTileRegion", opts...)
}

func eraseRegionTool() mcp.Tool {
	opts := regionParams(
		mcp.WithDescription("Erase every tile in a rectangle."),
	)
	return mcp.NewTool("eraseTileRegion", opts...)
}

func generateTool() mcp.Tool {
	return mcp.NewTool("generateTilemap",
		mcp.WithDescription("Generate procedural content into the canvas starting at (0,0). Algorithms: "+strings.Join(gen.Algorithms(), ", ")),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Width in tiles")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Height in tiles")),
		mcp.WithString("algorithm", mcp.Required(), mcp.Enum(gen.Algorithms()...), mcp.Description("Generator to run")),
		mcp.WithObject("params", mcp.Description("Algorithm parameters such as seed")),
	)
}

type regionArgs struct {
	startRow, startCol, endRow, endCol int
}

func requireRegion(req mcp.CallToolRequest) (regionArgs, error) {
	var a regionArgs
	var err error
	if a.startRow, err = req.RequireInt("startRow"); err != nil {
		return a, err
	}
	if a.startCol, err = req.RequireInt("startCol"); err != nil {
		return a, err
	}
	if a.endRow, err = req.RequireInt("endRow"); err != nil {
		return a, err
	}
	if a.endCol, err = req.RequireInt("endCol"); err != nil {
		return a, err
	}
	return a, nil
}

func (t *Tools) PaintRegion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := requireRegion(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("tileType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.sess.PaintRegion(ctx, a.startRow, a.startCol, a.endRow, a.endCol, typ)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return regionText("Painted", res), nil
}

func (t *Tools) EraseRegion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := requireRegion(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.sess.EraseRegion(ctx, a.startRow, a.startCol, a.endRow, a.endCol)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return regionText("Erased", res), nil
}

func (t *Tools) Generate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := req.RequireInt("width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h, err := req.RequireInt("height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	algo, err := req.RequireString("algorithm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params, err := objectArg(req, "params")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.sess.Generate(ctx, w, h, algo, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return regionText(fmt.Sprintf("Generated %dx%d %s map;", w, h, algo), res), nil
}

// objectArg accepts the argument as an object or as a JSON string, since
// some clients stringify nested objects.
func objectArg(req mcp.CallToolRequest, key string) (map[string]any, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%s must be an object: %w", key, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s must be an object", key)
	}
}

func regionText(verb string, res session.RegionResult) *mcp.CallToolResult {
	return mcp.NewToolResultText(fmt.Sprintf("%s %d tiles in %d batches.", verb, res.Changed, res.Batches.BatchCount))
}
