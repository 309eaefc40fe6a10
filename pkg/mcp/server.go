package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/regraph/internal/expressions"
	"github.com/rendis/regraph/internal/store"
	"github.com/rendis/regraph/internal/validation"
)

// GraphServerDeps holds the dependencies for creating a GraphServer.
type GraphServerDeps struct {
	Store      store.Store
	Events     *store.OperationLog
	Conditions validation.ConditionChecker
	Logger     *slog.Logger
}

// GraphServer wraps an MCP server with graph-editing tool handlers.
type GraphServer struct {
	store      store.Store
	events     *store.OperationLog
	conditions validation.ConditionChecker
	snapshots  *validation.SnapshotValidator
	query      *expressions.GoJQEngine
	sessions   *SessionRegistry
	notifier   GraphNotifier
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// NewGraphServer creates a GraphServer with all 7 tools registered.
func NewGraphServer(deps GraphServerDeps) (*GraphServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	snapshots, err := validation.NewSnapshotValidator()
	if err != nil {
		return nil, fmt.Errorf("build snapshot validator: %w", err)
	}

	s := &GraphServer{
		store:      deps.Store,
		events:     deps.Events,
		conditions: deps.Conditions,
		snapshots:  snapshots,
		query:      expressions.NewGoJQEngine(),
		sessions:   NewSessionRegistry(),
		logger:     logger,
	}

	mcpSrv := server.NewMCPServer(
		"regraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Regraph edits workflow editor graphs. Use graph.load to store a snapshot, graph.analyze to plan a branch insertion at a node, graph.validate to check a plan, graph.transfer to apply it, graph.branch to insert a branch from a drag gesture, graph.query to run jq expressions over a stored snapshot, and graph.diagram to render it as a Mermaid flowchart."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.sessions)
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *GraphServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *GraphServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 7 registered MCP tools as ServerTool entries.
func (s *GraphServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: loadTool(), Handler: s.handleLoad},
		{Tool: analyzeTool(), Handler: s.handleAnalyze},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: transferTool(), Handler: s.handleTransfer},
		{Tool: branchTool(), Handler: s.handleBranch},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func loadTool() mcp.Tool {
	return mcp.NewTool("graph.load",
		mcp.WithDescription("Validate a graph snapshot and store it as a new version"),
		mcp.WithObject("snapshot", mcp.Required(), mcp.Description("Graph snapshot with nodes and edges arrays")),
		mcp.WithString("graph_id", mcp.Description("Existing graph to version (omit to create a new graph)")),
		mcp.WithString("name", mcp.Description("Graph name when creating a new graph")),
	)
}

func analyzeTool() mcp.Tool {
	return mcp.NewTool("graph.analyze",
		mcp.WithDescription("Analyze a branch insertion at a node and return the transfer plan"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to analyze")),
		mcp.WithString("target_node_id", mcp.Required(), mcp.Description("Node where the branch would be inserted")),
		mcp.WithNumber("version", mcp.Description("Snapshot version (default: latest)")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("graph.validate",
		mcp.WithDescription("Run the full validation passes over a branch-insertion plan"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to validate against")),
		mcp.WithString("target_node_id", mcp.Required(), mcp.Description("Node where the branch would be inserted")),
		mcp.WithNumber("version", mcp.Description("Snapshot version (default: latest)")),
	)
}

func transferTool() mcp.Tool {
	return mcp.NewTool("graph.transfer",
		mcp.WithDescription("Plan, validate and commit a branch insertion, storing the result as a new snapshot version"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to modify")),
		mcp.WithString("target_node_id", mcp.Required(), mcp.Description("Node converted into a branch")),
		mcp.WithNumber("version", mcp.Description("Snapshot version to start from (default: latest)")),
		mcp.WithBoolean("skip_repositioning", mcp.Description("Keep original node positions")),
	)
}

func branchTool() mcp.Tool {
	return mcp.NewTool("graph.branch",
		mcp.WithDescription("Insert a two-slot branch from a drag gesture: the source node becomes a branch and its downstream steps move under the first slot"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to modify")),
		mcp.WithString("source_node_id", mcp.Required(), mcp.Description("Node the drag started from")),
		mcp.WithString("target_node_id", mcp.Required(), mcp.Description("Node the drag was dropped on")),
		mcp.WithString("left_label", mcp.Description("Label of the slot that receives the steps (default: Option 1)")),
		mcp.WithString("right_label", mcp.Description("Label of the slot that starts empty (default: Option 2)")),
		mcp.WithNumber("version", mcp.Description("Snapshot version to start from (default: latest)")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("graph.diagram",
		mcp.WithDescription("Render a stored snapshot as a Mermaid flowchart"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to render")),
		mcp.WithNumber("version", mcp.Description("Snapshot version (default: latest)")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("graph.query",
		mcp.WithDescription("Run a jq expression over a stored snapshot. The document exposes nodes, edges, graphId and version"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to query")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("jq expression, e.g. '.nodes | length'")),
		mcp.WithNumber("version", mcp.Description("Snapshot version (default: latest)")),
	)
}
