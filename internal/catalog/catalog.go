// Package catalog reconstructs the logical per-tenant document listing
// from a raw object listing, pairing content objects with their
// metadata sidecars by the derived-key naming convention. There is no
// side index; the suffix convention is the single source of truth.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/storage"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

// Document is one logical catalog entry.
type Document struct {
	Filename     string
	Size         int64
	LastModified time.Time
	StorageKey   string

	// Metadata holds the sidecar's attributes, or nil when the document
	// has no sidecar or the sidecar could not be parsed.
	Metadata map[string]any
}

// Listing is the reconstructed catalog for one tenant. Totals cover
// content objects only; sidecars are bookkeeping, not documents.
type Listing struct {
	Documents  []Document
	TotalCount int
	TotalSize  int64
}

// sidecarDoc is the persisted sidecar shape. metadataAttributes is the
// only recognized top-level key; anything else reads as "no metadata".
type sidecarDoc struct {
	MetadataAttributes map[string]any `json:"metadataAttributes"`
}

// Builder reconstructs listings, fetching sidecar bodies through the
// object store.
type Builder struct {
	store  storage.ObjectStore
	logger *zap.Logger
}

// NewBuilder creates a catalog builder.
func NewBuilder(store storage.ObjectStore, logger *zap.Logger) (*Builder, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: store, logger: logger}, nil
}

// Build partitions the raw objects into content and sidecars, attaches
// sidecar attributes to their content entries, and returns the listing
// in the input's order. A missing or corrupt sidecar never fails the
// listing; the affected entry just carries no metadata.
func (b *Builder) Build(ctx context.Context, id tenant.Identity, objects []storage.ObjectInfo) (*Listing, error) {
	sidecars := make(map[string]struct{})
	contents := make([]storage.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if tenant.IsSidecarKey(obj.Key) {
			sidecars[obj.Key] = struct{}{}
			continue
		}
		contents = append(contents, obj)
	}

	listing := &Listing{Documents: make([]Document, 0, len(contents))}
	for _, obj := range contents {
		doc := Document{
			Filename:     baseName(obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
			StorageKey:   obj.Key,
		}

		sidecarKey := tenant.SidecarKey(obj.Key)
		if _, ok := sidecars[sidecarKey]; ok {
			doc.Metadata = b.loadSidecar(ctx, id, sidecarKey)
		}

		listing.Documents = append(listing.Documents, doc)
		listing.TotalSize += obj.Size
	}
	listing.TotalCount = len(listing.Documents)

	return listing, nil
}

// loadSidecar fetches and parses one sidecar body. Failure of any kind
// is isolated to this entry: log and return nil.
func (b *Builder) loadSidecar(ctx context.Context, id tenant.Identity, key string) map[string]any {
	body, err := b.store.Get(ctx, key)
	if err != nil {
		b.logger.Warn("sidecar fetch failed",
			zap.String("tenant_id", id.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}

	var doc sidecarDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		b.logger.Warn("sidecar parse failed",
			zap.String("tenant_id", id.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}
	if doc.MetadataAttributes == nil {
		return nil
	}
	return doc.MetadataAttributes
}

// baseName returns the last path segment of a storage key.
func baseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
