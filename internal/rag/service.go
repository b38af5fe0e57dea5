// Package rag orchestrates tenant-scoped retrieval-augmented queries:
// it composes the mandatory tenant filter with the caller's predicates,
// invokes the retrieval backend, and normalizes its references into
// citations. Single-shot request/response translation, no state, no
// retries.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/filter"
	"github.com/fyrsmithlabs/kbgateway/internal/retrieval"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

// Config holds the query orchestrator's knowledge-base settings.
type Config struct {
	KnowledgeBaseID string
	Region          string
	DefaultModelID  string

	// UnknownOperators names how unrecognized filter operators are
	// treated. See filter.UnknownOperatorPolicy.
	UnknownOperators filter.UnknownOperatorPolicy
}

// QueryInput is one natural-language query against the tenant's corpus.
type QueryInput struct {
	Query      string
	Filters    []filter.Predicate
	ModelID    string // optional override of the configured default
	MaxResults int32
}

// Location points a citation back at its stored source.
type Location struct {
	S3URI string `json:"s3_uri"`
	Type  string `json:"type"`
}

// Citation is one source reference backing the answer.
type Citation struct {
	Content       string    `json:"content"`
	DocumentTitle string    `json:"document_title,omitempty"`
	Location      *Location `json:"location,omitempty"`
	Score         *float64  `json:"score,omitempty"`
}

// QueryOutput is the normalized answer.
type QueryOutput struct {
	Answer    string
	Citations []Citation
	SessionID string
	ModelUsed string
}

// Service is the query orchestrator.
type Service struct {
	backend retrieval.Backend
	cfg     Config
	logger  *zap.Logger
}

// NewService creates the query service.
func NewService(backend retrieval.Backend, cfg Config, logger *zap.Logger) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("retrieval backend is required")
	}
	if cfg.KnowledgeBaseID == "" {
		return nil, fmt.Errorf("knowledge base ID is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.DefaultModelID == "" {
		return nil, fmt.Errorf("default model ID is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, cfg: cfg, logger: logger}, nil
}

// Query answers a single query for the tenant.
func (s *Service) Query(ctx context.Context, id tenant.Identity, in QueryInput) (*QueryOutput, error) {
	expr, err := filter.Compose(id, in.Filters, s.cfg.UnknownOperators)
	if err != nil {
		return nil, err
	}

	modelID := in.ModelID
	if modelID == "" {
		modelID = s.cfg.DefaultModelID
	}

	s.logger.Debug("querying knowledge base",
		zap.String("tenant_id", id.String()),
		zap.Int("filters", len(in.Filters)),
		zap.Int32("max_results", in.MaxResults),
		zap.String("model_id", modelID),
	)

	result, err := s.backend.RetrieveAndGenerate(ctx, retrieval.Request{
		Query:           in.Query,
		KnowledgeBaseID: s.cfg.KnowledgeBaseID,
		ModelARN:        modelARN(s.cfg.Region, modelID),
		MaxResults:      in.MaxResults,
		Filter:          &expr,
	})
	if err != nil {
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}

	citations := make([]Citation, 0, len(result.References))
	for _, ref := range result.References {
		citations = append(citations, toCitation(ref))
	}

	return &QueryOutput{
		Answer:    result.Answer,
		Citations: citations,
		SessionID: result.SessionID,
		ModelUsed: modelID,
	}, nil
}

func toCitation(ref retrieval.Reference) Citation {
	c := Citation{
		Content: ref.Text,
		Score:   ref.Score,
	}
	if ref.SourceURI != "" {
		c.DocumentTitle = ref.SourceURI[strings.LastIndex(ref.SourceURI, "/")+1:]
		c.Location = &Location{S3URI: ref.SourceURI, Type: ref.LocationType}
	}
	return c
}

// modelARN builds the foundation-model ARN for the configured region.
func modelARN(region, modelID string) string {
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", region, modelID)
}
