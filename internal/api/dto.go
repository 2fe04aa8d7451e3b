package api

import (
	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/linkservice"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/requirements"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Title string `json:"title"`
}

// InsertBlockRequest is the request body for inserting a block.
type InsertBlockRequest struct {
	Index  int    `json:"index"`
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	Text   string `json:"text,omitempty"`
}

// MoveBlockRequest is the request body for moving a block.
type MoveBlockRequest struct {
	Index int `json:"index"`
}

// ReplaceTextRequest is the request body for replacing a block's text.
type ReplaceTextRequest struct {
	Text string `json:"text"`
}

// LinkRequest is the request body for linking a requirement to a block.
type LinkRequest struct {
	ReqID      string  `json:"reqId"`
	Coverage   string  `json:"coverage"`
	Confidence float64 `json:"confidence"`
}

// DocumentInfo is a document listing item (aliased from the domain layer).
type DocumentInfo = linkservice.DocumentInfo

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentInfo `json:"documents"`
	Total     int            `json:"total"`
}

// BlockListResponse wraps a document's blocks in position order.
type BlockListResponse struct {
	Blocks []linkservice.BlockEntry `json:"blocks"`
}

// BlockLinksResponse wraps one block's link records.
type BlockLinksResponse struct {
	BlockID string                `json:"blockId"`
	Links   []document.LinkRecord `json:"links"`
}

// RequirementBlocksResponse wraps the block ids linked to one requirement.
type RequirementBlocksResponse struct {
	ReqID    string   `json:"reqId"`
	BlockIDs []string `json:"blockIds"`
	Linked   bool     `json:"linked"`
}

// CoverageResponse is the aggregate coverage summary plus the mirrored
// requirement records.
type CoverageResponse struct {
	Coverage     *linkservice.Coverage      `json:"coverage"`
	Requirements []requirements.Requirement `json:"requirement_records,omitempty"`
}
