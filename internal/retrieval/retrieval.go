// Package retrieval defines the boundary to the managed
// retrieval-and-generation backend (Bedrock Knowledge Bases in
// production). The gateway never ranks, chunks, or embeds anything
// itself; it only shapes the query and the filter it sends here.
package retrieval

import (
	"context"

	"github.com/fyrsmithlabs/kbgateway/internal/filter"
)

// Request is a single retrieve-and-generate call.
type Request struct {
	Query           string
	KnowledgeBaseID string
	ModelARN        string
	MaxResults      int32

	// Filter constrains retrieval. Never nil in practice: the query
	// orchestrator always composes at least the tenant predicate.
	Filter *filter.Expression
}

// Reference is one retrieved source chunk backing the answer.
type Reference struct {
	Text         string
	SourceURI    string
	LocationType string
	Score        *float64
}

// Result is the backend's answer plus its supporting references.
type Result struct {
	Answer     string
	SessionID  string
	References []Reference
}

// Backend is the retrieval-and-generation service.
type Backend interface {
	// RetrieveAndGenerate answers a query against the knowledge base,
	// constrained by the request's filter expression.
	RetrieveAndGenerate(ctx context.Context, req Request) (*Result, error)

	// StartSync triggers a knowledge-base ingestion job so the index
	// catches up with storage mutations, returning the job status.
	// Best-effort: callers log failures but do not retry or roll back.
	StartSync(ctx context.Context, knowledgeBaseID, dataSourceID string) (string, error)
}
