package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/catalog"
	"github.com/fyrsmithlabs/kbgateway/internal/retrieval"
	"github.com/fyrsmithlabs/kbgateway/internal/storage"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

const (
	tenantA = "550e8400-e29b-41d4-a716-446655440000"
	tenantB = "660e8400-e29b-41d4-a716-446655440000"
)

// fakeBackend records sync calls; queries are not used here.
type fakeBackend struct {
	syncCalls int
	syncErr   error
}

func (f *fakeBackend) RetrieveAndGenerate(context.Context, retrieval.Request) (*retrieval.Result, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) StartSync(context.Context, string, string) (string, error) {
	f.syncCalls++
	if f.syncErr != nil {
		return "", f.syncErr
	}
	return "STARTING", nil
}

func newService(t *testing.T, backend retrieval.Backend) (*Service, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	builder, err := catalog.NewBuilder(store, zap.NewNop())
	require.NoError(t, err)
	svc, err := NewService(store, backend, builder, Config{
		KnowledgeBaseID: "KB123",
		DataSourceID:    "DS456",
	}, zap.NewNop())
	require.NoError(t, err)
	return svc, store
}

func identity(t *testing.T, raw string) tenant.Identity {
	t.Helper()
	id, err := tenant.Parse(raw)
	require.NoError(t, err)
	return id
}

func TestUpload_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	svc, _ := newService(t, backend)
	id := identity(t, tenantA)

	result, err := svc.Upload(ctx, id, "doc.pdf", []byte("content"), "application/pdf",
		map[string]any{"author": "A"})
	require.NoError(t, err)

	assert.Equal(t, "doc.pdf", result.Filename)
	assert.Equal(t, int64(7), result.Size)
	assert.Equal(t, "documents/"+tenantA+"/doc.pdf", result.StorageKey)
	assert.Equal(t, map[string]any{"author": "A"}, result.Metadata)
	assert.True(t, result.SyncTriggered)
	assert.Equal(t, 1, backend.syncCalls)

	listing, err := svc.List(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, listing.TotalCount)
	assert.Equal(t, "doc.pdf", listing.Documents[0].Filename)
	assert.Equal(t, map[string]any{"author": "A"}, listing.Documents[0].Metadata)
}

func TestUpload_NoMetadataWritesNoSidecar(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, &fakeBackend{})
	id := identity(t, tenantA)

	_, err := svc.Upload(ctx, id, "doc.pdf", []byte("x"), "", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
}

func TestUpload_RejectsUnsafeFilename(t *testing.T) {
	svc, _ := newService(t, &fakeBackend{})
	id := identity(t, tenantA)

	_, err := svc.Upload(context.Background(), id, "../escape.pdf", []byte("x"), "", nil)
	assert.ErrorIs(t, err, tenant.ErrInvalidFilename)
}

func TestUpload_SyncFailureDoesNotFailUpload(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{syncErr: errors.New("throttled")}
	svc, _ := newService(t, backend)
	id := identity(t, tenantA)

	result, err := svc.Upload(ctx, id, "doc.pdf", []byte("x"), "", nil)
	require.NoError(t, err)
	assert.False(t, result.SyncTriggered)
}

func TestUpload_SyncSkippedWithoutKnowledgeBase(t *testing.T) {
	store := storage.NewMemoryStore()
	builder, err := catalog.NewBuilder(store, zap.NewNop())
	require.NoError(t, err)
	backend := &fakeBackend{}
	svc, err := NewService(store, backend, builder, Config{}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.Upload(context.Background(), identity(t, tenantA), "doc.pdf", []byte("x"), "", nil)
	require.NoError(t, err)
	assert.False(t, result.SyncTriggered)
	assert.Equal(t, 0, backend.syncCalls)
}

func TestDelete_RemovesContentAndSidecar(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, &fakeBackend{})
	id := identity(t, tenantA)

	_, err := svc.Upload(ctx, id, "doc.pdf", []byte("x"), "", map[string]any{"a": "b"})
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	result, err := svc.Delete(ctx, id, "doc.pdf")
	require.NoError(t, err)

	assert.Equal(t, "deleted", result.Status)
	assert.True(t, result.SyncTriggered)
	assert.Equal(t, 0, store.Len())

	listing, err := svc.List(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, listing.TotalCount)
}

func TestDelete_MissingSidecarIsSwallowed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &fakeBackend{})
	id := identity(t, tenantA)

	_, err := svc.Upload(ctx, id, "doc.pdf", []byte("x"), "", nil)
	require.NoError(t, err)

	result, err := svc.Delete(ctx, id, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "deleted", result.Status)
}

// flakyStore wraps MemoryStore, failing Delete on selected keys with an
// arbitrary error.
type flakyStore struct {
	*storage.MemoryStore
	deleteErr map[string]error
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if err, ok := s.deleteErr[key]; ok {
		return err
	}
	return s.MemoryStore.Delete(ctx, key)
}

func TestDelete_SidecarFailureDoesNotFailDelete(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	builder, err := catalog.NewBuilder(store, zap.NewNop())
	require.NoError(t, err)
	svc, err := NewService(store, &fakeBackend{}, builder, Config{
		KnowledgeBaseID: "KB123",
		DataSourceID:    "DS456",
	}, zap.NewNop())
	require.NoError(t, err)
	id := identity(t, tenantA)

	_, err = svc.Upload(ctx, id, "doc.pdf", []byte("x"), "", map[string]any{"a": "b"})
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	key, err := tenant.ContentKey(id, "doc.pdf")
	require.NoError(t, err)
	store.deleteErr = map[string]error{
		tenant.SidecarKey(key): errors.New("access denied"),
	}

	result, err := svc.Delete(ctx, id, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "deleted", result.Status)

	// Content is gone; only the stuck sidecar remains.
	assert.Equal(t, 1, store.Len())
}

func TestDelete_DoesNotTouchOtherTenant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &fakeBackend{})
	a := identity(t, tenantA)
	b := identity(t, tenantB)

	_, err := svc.Upload(ctx, a, "shared-name.pdf", []byte("aa"), "", nil)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, b, "shared-name.pdf", []byte("bbb"), "", nil)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, a, "shared-name.pdf")
	require.NoError(t, err)

	listingA, err := svc.List(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 0, listingA.TotalCount)

	listingB, err := svc.List(ctx, b)
	require.NoError(t, err)
	require.Equal(t, 1, listingB.TotalCount)
	assert.Equal(t, int64(3), listingB.TotalSize)
}
