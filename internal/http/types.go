package http

import (
	"time"

	"github.com/fyrsmithlabs/kbgateway/internal/filter"
	"github.com/fyrsmithlabs/kbgateway/internal/rag"
)

// RootResponse is the response body for GET /.
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	Query           string             `json:"query"`
	MetadataFilters []filter.Predicate `json:"metadata_filters,omitempty"`
	ModelID         string             `json:"model_id,omitempty"`
	MaxResults      *int               `json:"max_results,omitempty"`
}

// ChatResponse is the response body for POST /chat.
type ChatResponse struct {
	Answer    string         `json:"answer"`
	Citations []rag.Citation `json:"citations"`
	SessionID string         `json:"session_id,omitempty"`
	ModelUsed string         `json:"model_used,omitempty"`
}

// FileRecord describes one document in responses.
type FileRecord struct {
	Filename     string         `json:"filename"`
	Size         int64          `json:"size"`
	LastModified time.Time      `json:"last_modified"`
	S3Key        string         `json:"s3_key"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// UploadResponse is the response body for POST /files.
type UploadResponse struct {
	FileRecord
	SyncTriggered bool `json:"sync_triggered"`
}

// FileListResponse is the response body for GET /files.
type FileListResponse struct {
	Files      []FileRecord `json:"files"`
	TotalCount int          `json:"total_count"`
	TotalSize  int64        `json:"total_size"`
}

// DeleteResponse is the response body for DELETE /files/{filename}.
type DeleteResponse struct {
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	SyncTriggered bool   `json:"sync_triggered"`
}
