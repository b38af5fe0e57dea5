package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/rag"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

const (
	defaultMaxResults = 5
	maxResultsCeiling = 100
)

// handleChat answers a natural-language query against the tenant's
// document corpus.
func (s *Server) handleChat(c echo.Context) error {
	id, err := tenant.FromContext(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "query must not be empty")
	}

	maxResults := defaultMaxResults
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
		if maxResults < 1 || maxResults > maxResultsCeiling {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				"max_results must be between 1 and 100")
		}
	}

	out, err := s.rag.Query(c.Request().Context(), id, rag.QueryInput{
		Query:      req.Query,
		Filters:    req.MetadataFilters,
		ModelID:    req.ModelID,
		MaxResults: int32(maxResults),
	})
	if err != nil {
		s.logger.Error("chat query failed",
			zap.String("tenant_id", id.String()),
			zap.Error(err),
		)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Answer:    out.Answer,
		Citations: out.Citations,
		SessionID: out.SessionID,
		ModelUsed: out.ModelUsed,
	})
}
