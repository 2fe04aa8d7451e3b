// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Docbrand requirement-linking tools for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/linkservice"
)

// Server wraps the MCP server with Docbrand tools.
type Server struct {
	mcp *server.MCPServer
	svc *linkservice.Service
}

// New creates a new MCP server with all Docbrand tools registered.
func New(svc *linkservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Docbrand",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents in the store."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_coverage",
		mcp.WithDescription("Get a document's requirement coverage summary: total links, linked blocks, linked requirement ids."),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
	), s.getCoverage)

	s.mcp.AddTool(mcp.NewTool("get_blocks_for_requirement",
		mcp.WithDescription("Find all blocks in a document linked to the given requirement."),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("req_id", mcp.Required(), mcp.Description("Requirement id, e.g. REQ-42")),
	), s.getBlocksForRequirement)

	s.mcp.AddTool(mcp.NewTool("get_block_links",
		mcp.WithDescription("Read the canonical link records on one block."),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id")),
	), s.getBlockLinks)

	s.mcp.AddTool(mcp.NewTool("link_requirement",
		mcp.WithDescription("Link a requirement to a block. The record MUST follow the canonical "+
			"link format (reqId, coverage full|partial, confidence in [0,1]). Read the contract "+
			"first via the get_link_contract tool or the docbrand://link-format resource."),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id")),
		mcp.WithString("req_id", mcp.Required(), mcp.Description("Requirement id")),
		mcp.WithString("coverage", mcp.Description("full or partial (default full)")),
		mcp.WithNumber("confidence", mcp.Description("Confidence in [0,1], default 1.0")),
	), s.linkRequirement)

	s.mcp.AddTool(mcp.NewTool("unlink_requirement",
		mcp.WithDescription("Remove a requirement link from a block."),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id")),
		mcp.WithString("req_id", mcp.Required(), mcp.Description("Requirement id")),
	), s.unlinkRequirement)

	s.mcp.AddTool(mcp.NewTool("repair_index",
		mcp.WithDescription("Rebuild a document's derived link and position indices from the canonical tree."),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
	), s.repairIndex)

	s.mcp.AddTool(mcp.NewTool("get_link_contract",
		mcp.WithDescription("Returns the canonical link record contract. "+
			"Call this before linking requirements to ensure correct structure."),
	), s.getLinkContract)

	// Resource: link format contract.
	s.mcp.AddResource(
		mcp.NewResource("docbrand://link-format", "Link Record Contract",
			mcp.WithResourceDescription("Canonical block→requirement link record format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkFormatResource,
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

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.ListDocuments(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("no documents"), nil
	}
	var lines []string
	for _, d := range docs {
		lines = append(lines, fmt.Sprintf("%s\t%s", d.ID, d.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getCoverage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cov, err := s.svc.DocumentCoverage(ctx, docID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(cov, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBlocksForRequirement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reqID, err := req.RequireString("req_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := s.svc.BlocksForRequirement(ctx, docID, reqID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultText("no blocks linked"), nil
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getBlockLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.BlockLinks(ctx, docID, blockID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no links"), nil
	}
	out, _ := json.MarshalIndent(links, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) linkRequirement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reqID, err := req.RequireString("req_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	coverage := document.CoverageFull
	if c := req.GetString("coverage", ""); c != "" {
		coverage = document.Coverage(c)
		if coverage != document.CoverageFull && coverage != document.CoveragePartial {
			return mcp.NewToolResultError("coverage must be full or partial"), nil
		}
	}
	confidence := req.GetFloat("confidence", 1.0)
	if confidence < 0 || confidence > 1 {
		return mcp.NewToolResultError("confidence must be in [0,1]"), nil
	}

	rec := document.LinkRecord{ReqID: reqID, Coverage: coverage, Confidence: confidence}
	if err := s.svc.LinkRequirement(ctx, docID, blockID, rec); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked %s to block %s", reqID, blockID)), nil
}

func (s *Server) unlinkRequirement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reqID, err := req.RequireString("req_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.UnlinkRequirement(ctx, docID, blockID, reqID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("unlinked %s from block %s", reqID, blockID)), nil
}

func (s *Server) repairIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Repair(ctx, docID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("indices rebuilt for %s", docID)), nil
}

func (s *Server) getLinkContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkFormatContract), nil
}

func (s *Server) readLinkFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "docbrand://link-format",
			MIMEType: "text/markdown",
			Text:     LinkFormatContract,
		},
	}, nil
}
