// Package ingest orchestrates document upload, listing, and deletion
// for a tenant, and signals the retrieval backend to resynchronize its
// index after every storage mutation.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/catalog"
	"github.com/fyrsmithlabs/kbgateway/internal/retrieval"
	"github.com/fyrsmithlabs/kbgateway/internal/storage"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

// Config identifies the knowledge base the service keeps in sync.
// Empty identifiers disable sync signaling (local and test setups).
type Config struct {
	KnowledgeBaseID string
	DataSourceID    string
}

// Service is the ingestion orchestrator.
type Service struct {
	store   storage.ObjectStore
	backend retrieval.Backend
	catalog *catalog.Builder
	cfg     Config
	logger  *zap.Logger
}

// NewService creates the ingestion service.
func NewService(store storage.ObjectStore, backend retrieval.Backend, builder *catalog.Builder, cfg Config, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("retrieval backend is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("catalog builder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, backend: backend, catalog: builder, cfg: cfg, logger: logger}, nil
}

// UploadResult describes a completed upload. Metadata is echoed as
// given, not re-read from storage.
type UploadResult struct {
	Filename      string
	Size          int64
	StorageKey    string
	LastModified  time.Time
	Metadata      map[string]any
	SyncTriggered bool
}

// Upload writes the document content and, when metadata is non-empty,
// its sidecar, then requests a backend resync.
func (s *Service) Upload(ctx context.Context, id tenant.Identity, filename string, body []byte, contentType string, metadata map[string]any) (*UploadResult, error) {
	key, err := tenant.ContentKey(id, filename)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, key, body, contentType); err != nil {
		return nil, fmt.Errorf("upload content: %w", err)
	}

	if len(metadata) > 0 {
		sidecar, err := json.Marshal(map[string]any{"metadataAttributes": metadata})
		if err != nil {
			return nil, fmt.Errorf("encode sidecar: %w", err)
		}
		if err := s.store.Put(ctx, tenant.SidecarKey(key), sidecar, "application/json"); err != nil {
			return nil, fmt.Errorf("upload sidecar: %w", err)
		}
	}

	synced := s.triggerSync(ctx, id)
	s.logger.Info("document uploaded",
		zap.String("tenant_id", id.String()),
		zap.String("key", key),
		zap.Int("size", len(body)),
		zap.Bool("sync_triggered", synced),
	)

	return &UploadResult{
		Filename:      filename,
		Size:          int64(len(body)),
		StorageKey:    key,
		LastModified:  time.Now().UTC(),
		Metadata:      metadata,
		SyncTriggered: synced,
	}, nil
}

// List reconstructs the tenant's document catalog from storage.
func (s *Service) List(ctx context.Context, id tenant.Identity) (*catalog.Listing, error) {
	objects, err := s.store.List(ctx, tenant.ListPrefix(id))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return s.catalog.Build(ctx, id, objects)
}

// DeleteResult describes a completed deletion.
type DeleteResult struct {
	Filename      string
	Status        string
	Message       string
	SyncTriggered bool
}

// Delete removes the document and its sidecar, then requests a backend
// resync. A missing sidecar is a normal state and is swallowed; any
// other sidecar failure is logged as a warning but does not fail the
// delete.
func (s *Service) Delete(ctx context.Context, id tenant.Identity, filename string) (*DeleteResult, error) {
	key, err := tenant.ContentKey(id, filename)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("delete content: %w", err)
	}

	if err := s.store.Delete(ctx, tenant.SidecarKey(key)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("sidecar delete failed",
			zap.String("tenant_id", id.String()),
			zap.String("key", tenant.SidecarKey(key)),
			zap.Error(err),
		)
	}

	synced := s.triggerSync(ctx, id)
	s.logger.Info("document deleted",
		zap.String("tenant_id", id.String()),
		zap.String("key", key),
		zap.Bool("sync_triggered", synced),
	)

	return &DeleteResult{
		Filename:      filename,
		Status:        "deleted",
		Message:       "file and metadata removed, knowledge base sync requested",
		SyncTriggered: synced,
	}, nil
}

// triggerSync requests a backend resync. Failures are logged, never
// propagated: the storage mutation stands and the index catches up on
// the next successful sync.
func (s *Service) triggerSync(ctx context.Context, id tenant.Identity) bool {
	if s.cfg.KnowledgeBaseID == "" || s.cfg.DataSourceID == "" {
		return false
	}

	status, err := s.backend.StartSync(ctx, s.cfg.KnowledgeBaseID, s.cfg.DataSourceID)
	if err != nil {
		s.logger.Error("knowledge base sync failed",
			zap.String("tenant_id", id.String()),
			zap.String("knowledge_base_id", s.cfg.KnowledgeBaseID),
			zap.Error(err),
		)
		return false
	}

	s.logger.Debug("knowledge base sync triggered",
		zap.String("tenant_id", id.String()),
		zap.String("job_status", status),
	)
	return true
}
