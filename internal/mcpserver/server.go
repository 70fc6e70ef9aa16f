// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/hierarchy"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp  *server.MCPServer
	docs *docservice.Service
	hier *hierarchy.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(docs *docservice.Service, hier *hierarchy.Service) *Server {
	s := &Server{docs: docs, hier: hier}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_containers",
		mcp.WithDescription("List every container in the vault with its child count."),
	), s.listContainers)

	s.mcp.AddTool(mcp.NewTool("create_container",
		mcp.WithDescription("Create a container, optionally nested under a parent container. "+
			"The container's folder note is seeded in the canonical managed-document format; "+
			"read the contract first via the get_format_contract tool or the "+
			"othala://document-format resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Container name (no path separators or wiki-link characters)")),
		mcp.WithString("parent", mcp.Description("Optional parent container name")),
		mcp.WithString("type", mcp.Description("Optional container type stored in frontmatter")),
		mcp.WithString("light_color", mcp.Description("Optional light-theme color (e.g. #e8f0fe)")),
		mcp.WithString("dark_color", mcp.Description("Optional dark-theme color (e.g. #1a2b4c)")),
	), s.createContainer)

	s.mcp.AddTool(mcp.NewTool("move_container",
		mcp.WithDescription("Move a container under a new parent. Rejects moves that would "+
			"make a container its own ancestor."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Container to move")),
		mcp.WithString("parent", mcp.Required(), mcp.Description("New parent container name")),
	), s.moveContainer)

	s.mcp.AddTool(mcp.NewTool("promote_container",
		mcp.WithDescription("Promote a container to the vault root, removing it from every parent."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Container to promote")),
	), s.promoteContainer)

	s.mcp.AddTool(mcp.NewTool("delete_container",
		mcp.WithDescription("Delete a container, its storage group, its nested containers, "+
			"and every managed reference to them across the vault."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Container to delete")),
	), s.deleteContainer)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a Markdown document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. Projects/meeting.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("add_entry",
		mcp.WithDescription("Insert a wiki-link entry into a managed section of a document, "+
			"creating the section in canonical order when missing. Idempotent: an entry "+
			"that is already present is not duplicated."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document to modify")),
		mcp.WithString("section", mcp.Required(), mcp.Description("Managed section name (Containers, Notes, Resources, or Prompts)")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target (no brackets, pipes, or newlines)")),
	), s.addEntry)

	s.mcp.AddTool(mcp.NewTool("prune_references",
		mcp.WithDescription("Remove every managed entry linking to a target from a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document to modify")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target to remove")),
	), s.pruneReferences)

	s.mcp.AddTool(mcp.NewTool("search_vault",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchVault)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents whose wiki-links reference the given target name."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target name (e.g. meeting for [[meeting]])")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the canonical Othala managed-document format contract. "+
			"Call this before creating or editing documents to ensure correct structure."),
	), s.getFormatContract)

	// Resource: managed-document format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical managed-document format that all vault documents follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listContainers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.hier.Summaries(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createContainer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent := ""
	if p, err := req.RequireString("parent"); err == nil {
		parent = p
	}
	var attrs hierarchy.Attrs
	if v, err := req.RequireString("type"); err == nil {
		attrs.Type = v
	}
	if v, err := req.RequireString("light_color"); err == nil {
		attrs.LightColor = v
	}
	if v, err := req.RequireString("dark_color"); err == nil {
		attrs.DarkColor = v
	}

	c, err := s.hier.Create(ctx, name, parent, attrs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", c.Path)), nil
}

func (s *Server) moveContainer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent, err := req.RequireString("parent")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.hier.Move(ctx, name, parent)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) promoteContainer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.hier.Promote(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteContainer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.hier.Delete(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.docs.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) addEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sectionName, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.docs.AddEntry(ctx, path, sectionName, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) pruneReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.docs.PruneReferences(ctx, path, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.docs.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.docs.Backlinks(ctx, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getFormatContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
