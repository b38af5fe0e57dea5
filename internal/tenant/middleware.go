package tenant

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DefaultHeader is the request header carrying the tenant identifier.
const DefaultHeader = "X-Tenant-ID"

// MiddlewareConfig configures the tenant resolution middleware.
type MiddlewareConfig struct {
	// HeaderName is the header to read the tenant identifier from.
	// Defaults to DefaultHeader.
	HeaderName string

	// ExemptPaths lists exact request paths that do not require a tenant
	// identifier (health checks, the root banner, metrics). The exemption
	// is an explicit allow-list; everything else is tenant-scoped.
	ExemptPaths []string
}

// Middleware returns an echo middleware that resolves the tenant
// identity for every non-exempt request and stores it on the request
// context. Requests without a valid identifier are rejected with 400
// before reaching any handler.
func Middleware(cfg MiddlewareConfig, logger *zap.Logger) echo.MiddlewareFunc {
	header := cfg.HeaderName
	if header == "" {
		header = DefaultHeader
	}
	exempt := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if _, ok := exempt[path]; ok {
				return next(c)
			}

			raw := c.Request().Header.Get(header)
			id, err := Parse(raw)
			if err != nil {
				logger.Warn("tenant resolution failed",
					zap.String("path", path),
					zap.String("method", c.Request().Method),
					zap.String("tenant_id", raw),
					zap.Error(err),
				)
				if errors.Is(err, ErrMissingTenant) {
					return echo.NewHTTPError(http.StatusBadRequest,
						fmt.Sprintf("%s header is required", header))
				}
				return echo.NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("invalid tenant ID: %s", raw))
			}

			c.SetRequest(c.Request().WithContext(NewContext(c.Request().Context(), id)))
			return next(c)
		}
	}
}
