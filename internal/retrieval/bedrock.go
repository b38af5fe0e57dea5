package retrieval

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/filter"
)

// RuntimeAPI is the subset of the Bedrock agent runtime client used by
// the adapter.
type RuntimeAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// AgentAPI is the subset of the Bedrock agent control-plane client used
// by the adapter.
type AgentAPI interface {
	StartIngestionJob(ctx context.Context, params *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
}

// BedrockBackend implements Backend against Bedrock Knowledge Bases.
// The runtime client serves queries; the control-plane client triggers
// ingestion jobs.
type BedrockBackend struct {
	runtime RuntimeAPI
	agent   AgentAPI
	logger  *zap.Logger
}

// NewBedrockBackend creates the Bedrock adapter.
func NewBedrockBackend(runtime RuntimeAPI, agent AgentAPI, logger *zap.Logger) (*BedrockBackend, error) {
	if runtime == nil {
		return nil, fmt.Errorf("bedrock runtime client is required")
	}
	if agent == nil {
		return nil, fmt.Errorf("bedrock agent client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BedrockBackend{runtime: runtime, agent: agent, logger: logger}, nil
}

func (b *BedrockBackend) RetrieveAndGenerate(ctx context.Context, req Request) (*Result, error) {
	vectorCfg := &types.KnowledgeBaseVectorSearchConfiguration{}
	if req.MaxResults > 0 {
		vectorCfg.NumberOfResults = aws.Int32(req.MaxResults)
	}
	if req.Filter != nil && !req.Filter.IsZero() {
		f, err := toRetrievalFilter(*req.Filter)
		if err != nil {
			return nil, fmt.Errorf("translate filter: %w", err)
		}
		vectorCfg.Filter = f
	}

	out, err := b.runtime.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{
			Text: aws.String(req.Query),
		},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(req.KnowledgeBaseID),
				ModelArn:        aws.String(req.ModelARN),
				RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: vectorCfg,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve and generate: %w", err)
	}

	result := &Result{
		SessionID: aws.ToString(out.SessionId),
	}
	if out.Output != nil {
		result.Answer = aws.ToString(out.Output.Text)
	}
	for _, citation := range out.Citations {
		for _, ref := range citation.RetrievedReferences {
			result.References = append(result.References, toReference(ref))
		}
	}
	return result, nil
}

func (b *BedrockBackend) StartSync(ctx context.Context, knowledgeBaseID, dataSourceID string) (string, error) {
	out, err := b.agent.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		KnowledgeBaseId: aws.String(knowledgeBaseID),
		DataSourceId:    aws.String(dataSourceID),
	})
	if err != nil {
		return "", fmt.Errorf("start ingestion job: %w", err)
	}

	status := ""
	if out.IngestionJob != nil {
		status = string(out.IngestionJob.Status)
	}
	b.logger.Debug("ingestion job started",
		zap.String("knowledge_base_id", knowledgeBaseID),
		zap.String("data_source_id", dataSourceID),
		zap.String("status", status),
	)
	return status, nil
}

// toRetrievalFilter translates the wire expression into the SDK's
// tagged-union filter type. The two representations are shape-for-shape
// identical; only the encoding differs.
func toRetrievalFilter(e filter.Expression) (types.RetrievalFilter, error) {
	switch {
	case e.Equals != nil:
		return &types.RetrievalFilterMemberEquals{Value: toAttribute(e.Equals)}, nil
	case e.NotEquals != nil:
		return &types.RetrievalFilterMemberNotEquals{Value: toAttribute(e.NotEquals)}, nil
	case e.GreaterThan != nil:
		return &types.RetrievalFilterMemberGreaterThan{Value: toAttribute(e.GreaterThan)}, nil
	case e.LessThan != nil:
		return &types.RetrievalFilterMemberLessThan{Value: toAttribute(e.LessThan)}, nil
	case e.StringContains != nil:
		return &types.RetrievalFilterMemberStringContains{Value: toAttribute(e.StringContains)}, nil
	case len(e.AndAll) > 0:
		parts := make([]types.RetrievalFilter, 0, len(e.AndAll))
		for _, sub := range e.AndAll {
			f, err := toRetrievalFilter(sub)
			if err != nil {
				return nil, err
			}
			parts = append(parts, f)
		}
		return &types.RetrievalFilterMemberAndAll{Value: parts}, nil
	}
	return nil, fmt.Errorf("empty filter expression")
}

func toAttribute(c *filter.Condition) types.FilterAttribute {
	return types.FilterAttribute{
		Key:   aws.String(c.Key),
		Value: document.NewLazyDocument(c.Value),
	}
}

func toReference(ref types.RetrievedReference) Reference {
	out := Reference{}
	if ref.Content != nil {
		out.Text = aws.ToString(ref.Content.Text)
	}
	if ref.Location != nil {
		out.LocationType = string(ref.Location.Type)
		if ref.Location.S3Location != nil {
			out.SourceURI = aws.ToString(ref.Location.S3Location.Uri)
		}
	}
	if doc, ok := ref.Metadata["score"]; ok && doc != nil {
		var score float64
		if err := doc.UnmarshalSmithyDocument(&score); err == nil {
			out.Score = &score
		}
	}
	return out
}
