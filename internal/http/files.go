package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/catalog"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

// handleListFiles lists the tenant's documents.
func (s *Server) handleListFiles(c echo.Context) error {
	id, err := tenant.FromContext(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	listing, err := s.ingest.List(c.Request().Context(), id)
	if err != nil {
		s.logger.Error("list files failed",
			zap.String("tenant_id", id.String()),
			zap.Error(err),
		)
		return httpError(err)
	}

	resp := FileListResponse{
		Files:      make([]FileRecord, 0, len(listing.Documents)),
		TotalCount: listing.TotalCount,
		TotalSize:  listing.TotalSize,
	}
	for _, doc := range listing.Documents {
		resp.Files = append(resp.Files, toFileRecord(doc))
	}

	return c.JSON(http.StatusOK, resp)
}

// handleUploadFile accepts a multipart upload with an optional
// "metadata" form field containing a JSON object.
func (s *Server) handleUploadFile(c echo.Context) error {
	id, err := tenant.FromContext(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	filename := filepath.Base(fileHeader.Filename)
	if err := s.checkExtension(filename); err != nil {
		return err
	}

	metadata, err := parseMetadataField(c.FormValue("metadata"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "metadata must be a JSON object")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read uploaded file")
	}
	defer src.Close()

	body, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read uploaded file")
	}

	contentType := fileHeader.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := s.ingest.Upload(c.Request().Context(), id, filename, body, contentType, metadata)
	if err != nil {
		s.logger.Error("upload failed",
			zap.String("tenant_id", id.String()),
			zap.String("filename", filename),
			zap.Error(err),
		)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, UploadResponse{
		FileRecord: FileRecord{
			Filename:     result.Filename,
			Size:         result.Size,
			LastModified: result.LastModified,
			S3Key:        result.StorageKey,
			Metadata:     result.Metadata,
		},
		SyncTriggered: result.SyncTriggered,
	})
}

// handleDeleteFile removes a document and its metadata sidecar.
func (s *Server) handleDeleteFile(c echo.Context) error {
	id, err := tenant.FromContext(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	filename, err := url.PathUnescape(c.Param("filename"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}

	result, err := s.ingest.Delete(c.Request().Context(), id, filename)
	if err != nil {
		s.logger.Error("delete failed",
			zap.String("tenant_id", id.String()),
			zap.String("filename", filename),
			zap.Error(err),
		)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, DeleteResponse{
		Filename:      result.Filename,
		Status:        result.Status,
		Message:       result.Message,
		SyncTriggered: result.SyncTriggered,
	})
}

func (s *Server) checkExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file has no extension")
	}
	if _, ok := s.allowed[ext]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file type %s is not allowed", ext))
	}
	return nil
}

func parseMetadataField(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

func toFileRecord(doc catalog.Document) FileRecord {
	return FileRecord{
		Filename:     doc.Filename,
		Size:         doc.Size,
		LastModified: doc.LastModified,
		S3Key:        doc.StorageKey,
		Metadata:     doc.Metadata,
	}
}
