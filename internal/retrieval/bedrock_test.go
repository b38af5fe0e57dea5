package retrieval

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/filter"
)

type fakeRuntime struct {
	input  *bedrockagentruntime.RetrieveAndGenerateInput
	output *bedrockagentruntime.RetrieveAndGenerateOutput
	err    error
}

func (f *fakeRuntime) RetrieveAndGenerate(_ context.Context, in *bedrockagentruntime.RetrieveAndGenerateInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error) {
	f.input = in
	return f.output, f.err
}

type fakeAgent struct {
	input  *bedrockagent.StartIngestionJobInput
	output *bedrockagent.StartIngestionJobOutput
	err    error
}

func (f *fakeAgent) StartIngestionJob(_ context.Context, in *bedrockagent.StartIngestionJobInput, _ ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error) {
	f.input = in
	return f.output, f.err
}

func TestToRetrievalFilter(t *testing.T) {
	t.Run("single equals", func(t *testing.T) {
		got, err := toRetrievalFilter(filter.Equals("tenant_id", "t-1"))
		require.NoError(t, err)

		eq, ok := got.(*types.RetrievalFilterMemberEquals)
		require.True(t, ok)
		assert.Equal(t, "tenant_id", aws.ToString(eq.Value.Key))
	})

	t.Run("and aggregate preserves member order", func(t *testing.T) {
		expr := filter.And(
			filter.Equals("tenant_id", "t-1"),
			filter.GreaterThan("year", 2020),
			filter.StringContains("title", "aspirin"),
		)

		got, err := toRetrievalFilter(expr)
		require.NoError(t, err)

		and, ok := got.(*types.RetrievalFilterMemberAndAll)
		require.True(t, ok)
		require.Len(t, and.Value, 3)

		_, ok = and.Value[0].(*types.RetrievalFilterMemberEquals)
		assert.True(t, ok)
		_, ok = and.Value[1].(*types.RetrievalFilterMemberGreaterThan)
		assert.True(t, ok)
		_, ok = and.Value[2].(*types.RetrievalFilterMemberStringContains)
		assert.True(t, ok)
	})

	t.Run("empty expression is an error", func(t *testing.T) {
		_, err := toRetrievalFilter(filter.Expression{})
		assert.Error(t, err)
	})
}

func TestBedrockBackend_RetrieveAndGenerate(t *testing.T) {
	runtime := &fakeRuntime{
		output: &bedrockagentruntime.RetrieveAndGenerateOutput{
			SessionId: aws.String("session-123"),
			Output: &types.RetrieveAndGenerateOutput{
				Text: aws.String("the answer"),
			},
			Citations: []types.Citation{
				{
					RetrievedReferences: []types.RetrievedReference{
						{
							Content: &types.RetrievalResultContent{Text: aws.String("chunk text")},
							Location: &types.RetrievalResultLocation{
								Type: types.RetrievalResultLocationTypeS3,
								S3Location: &types.RetrievalResultS3Location{
									Uri: aws.String("s3://kb-docs/documents/t/report.pdf"),
								},
							},
						},
					},
				},
			},
		},
	}
	backend, err := NewBedrockBackend(runtime, &fakeAgent{}, zap.NewNop())
	require.NoError(t, err)

	expr := filter.Equals("tenant_id", "550e8400-e29b-41d4-a716-446655440000")
	result, err := backend.RetrieveAndGenerate(context.Background(), Request{
		Query:           "what is aspirin?",
		KnowledgeBaseID: "KB123",
		ModelARN:        "arn:aws:bedrock:us-east-1::foundation-model/m",
		MaxResults:      5,
		Filter:          &expr,
	})
	require.NoError(t, err)

	assert.Equal(t, "the answer", result.Answer)
	assert.Equal(t, "session-123", result.SessionID)
	require.Len(t, result.References, 1)
	assert.Equal(t, "chunk text", result.References[0].Text)
	assert.Equal(t, "s3://kb-docs/documents/t/report.pdf", result.References[0].SourceURI)

	// Request translation.
	require.NotNil(t, runtime.input)
	kbCfg := runtime.input.RetrieveAndGenerateConfiguration.KnowledgeBaseConfiguration
	assert.Equal(t, "KB123", aws.ToString(kbCfg.KnowledgeBaseId))
	vector := kbCfg.RetrievalConfiguration.VectorSearchConfiguration
	assert.Equal(t, int32(5), aws.ToInt32(vector.NumberOfResults))
	require.NotNil(t, vector.Filter)
}

func TestBedrockBackend_StartSync(t *testing.T) {
	agent := &fakeAgent{
		output: &bedrockagent.StartIngestionJobOutput{
			IngestionJob: &agenttypes.IngestionJob{
				Status: agenttypes.IngestionJobStatusStarting,
			},
		},
	}
	backend, err := NewBedrockBackend(&fakeRuntime{}, agent, zap.NewNop())
	require.NoError(t, err)

	status, err := backend.StartSync(context.Background(), "KB123", "DS456")
	require.NoError(t, err)

	assert.Equal(t, "STARTING", status)
	assert.Equal(t, "KB123", aws.ToString(agent.input.KnowledgeBaseId))
	assert.Equal(t, "DS456", aws.ToString(agent.input.DataSourceId))
}
