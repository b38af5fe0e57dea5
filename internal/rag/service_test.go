package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/filter"
	"github.com/fyrsmithlabs/kbgateway/internal/retrieval"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

const testTenant = "550e8400-e29b-41d4-a716-446655440000"

type fakeBackend struct {
	request retrieval.Request
	result  *retrieval.Result
	err     error
}

func (f *fakeBackend) RetrieveAndGenerate(_ context.Context, req retrieval.Request) (*retrieval.Result, error) {
	f.request = req
	return f.result, f.err
}

func (f *fakeBackend) StartSync(context.Context, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func testConfig() Config {
	return Config{
		KnowledgeBaseID: "KB123",
		Region:          "us-east-1",
		DefaultModelID:  "anthropic.claude-3-5-sonnet-20241022-v2:0",
	}
}

func newService(t *testing.T, backend retrieval.Backend, cfg Config) *Service {
	t.Helper()
	svc, err := NewService(backend, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func identity(t *testing.T) tenant.Identity {
	t.Helper()
	id, err := tenant.Parse(testTenant)
	require.NoError(t, err)
	return id
}

func TestQuery_SendsTenantScopedFilter(t *testing.T) {
	score := 0.95
	backend := &fakeBackend{
		result: &retrieval.Result{
			Answer:    "the answer",
			SessionID: "session-1",
			References: []retrieval.Reference{
				{
					Text:         "chunk",
					SourceURI:    "s3://kb-docs/documents/" + testTenant + "/guide.pdf",
					LocationType: "S3",
					Score:        &score,
				},
			},
		},
	}
	svc := newService(t, backend, testConfig())

	out, err := svc.Query(context.Background(), identity(t), QueryInput{
		Query:      "what is RAG?",
		MaxResults: 5,
	})
	require.NoError(t, err)

	// Tenant predicate is the whole filter when no user filters exist.
	require.NotNil(t, backend.request.Filter)
	require.NotNil(t, backend.request.Filter.Equals)
	assert.Equal(t, filter.TenantKey, backend.request.Filter.Equals.Key)
	assert.Equal(t, testTenant, backend.request.Filter.Equals.Value)
	assert.Equal(t, "KB123", backend.request.KnowledgeBaseID)
	assert.Equal(t, int32(5), backend.request.MaxResults)
	assert.Equal(t,
		"arn:aws:bedrock:us-east-1::foundation-model/anthropic.claude-3-5-sonnet-20241022-v2:0",
		backend.request.ModelARN)

	assert.Equal(t, "the answer", out.Answer)
	assert.Equal(t, "session-1", out.SessionID)
	assert.Equal(t, "anthropic.claude-3-5-sonnet-20241022-v2:0", out.ModelUsed)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "guide.pdf", out.Citations[0].DocumentTitle)
	require.NotNil(t, out.Citations[0].Location)
	assert.Equal(t, "S3", out.Citations[0].Location.Type)
	require.NotNil(t, out.Citations[0].Score)
	assert.Equal(t, 0.95, *out.Citations[0].Score)
}

func TestQuery_UserFiltersAppendedAfterTenant(t *testing.T) {
	backend := &fakeBackend{result: &retrieval.Result{Answer: "a"}}
	svc := newService(t, backend, testConfig())

	_, err := svc.Query(context.Background(), identity(t), QueryInput{
		Query: "q",
		Filters: []filter.Predicate{
			{Key: "year", Value: 2024, Operator: filter.OpGreaterThan},
		},
	})
	require.NoError(t, err)

	require.Len(t, backend.request.Filter.AndAll, 2)
	assert.Equal(t, filter.TenantKey, backend.request.Filter.AndAll[0].Equals.Key)
	assert.Equal(t, "year", backend.request.Filter.AndAll[1].GreaterThan.Key)
}

func TestQuery_ModelOverride(t *testing.T) {
	backend := &fakeBackend{result: &retrieval.Result{Answer: "a"}}
	svc := newService(t, backend, testConfig())

	out, err := svc.Query(context.Background(), identity(t), QueryInput{
		Query:   "q",
		ModelID: "anthropic.claude-3-haiku-20240307-v1:0",
	})
	require.NoError(t, err)

	assert.Contains(t, backend.request.ModelARN, "claude-3-haiku")
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", out.ModelUsed)
}

func TestQuery_RejectPolicySurfacesUnknownOperator(t *testing.T) {
	cfg := testConfig()
	cfg.UnknownOperators = filter.RejectUnknown
	backend := &fakeBackend{result: &retrieval.Result{}}
	svc := newService(t, backend, cfg)

	_, err := svc.Query(context.Background(), identity(t), QueryInput{
		Query: "q",
		Filters: []filter.Predicate{
			{Key: "year", Value: 2024, Operator: "around"},
		},
	})
	assert.ErrorIs(t, err, filter.ErrUnknownOperator)
}

func TestQuery_BackendErrorPropagates(t *testing.T) {
	backend := &fakeBackend{err: errors.New("throttled")}
	svc := newService(t, backend, testConfig())

	_, err := svc.Query(context.Background(), identity(t), QueryInput{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewService_Validation(t *testing.T) {
	backend := &fakeBackend{}

	_, err := NewService(nil, testConfig(), zap.NewNop())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.KnowledgeBaseID = ""
	_, err = NewService(backend, cfg, zap.NewNop())
	assert.Error(t, err)
}
