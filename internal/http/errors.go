package http

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/kbgateway/internal/filter"
	"github.com/fyrsmithlabs/kbgateway/internal/storage"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

// awsErrorStatus maps AWS service error codes to HTTP status codes.
var awsErrorStatus = map[string]int{
	"AccessDenied":                  http.StatusForbidden,
	"AccessDeniedException":         http.StatusForbidden,
	"UnauthorizedException":         http.StatusUnauthorized,
	"InvalidAccessKeyId":            http.StatusUnauthorized,
	"ThrottlingException":           http.StatusTooManyRequests,
	"TooManyRequestsException":      http.StatusTooManyRequests,
	"ProvisionedThroughputExceeded": http.StatusTooManyRequests,
	"ServiceQuotaExceededException": http.StatusTooManyRequests,
	"ResourceNotFoundException":     http.StatusNotFound,
	"NoSuchKey":                     http.StatusNotFound,
	"NoSuchBucket":                  http.StatusNotFound,
	"ValidationException":           http.StatusBadRequest,
	"InvalidParameterException":     http.StatusBadRequest,
	"InvalidRequestException":       http.StatusBadRequest,
	"ServiceUnavailableException":   http.StatusServiceUnavailable,
	"InternalServerException":       http.StatusInternalServerError,
}

// httpError translates service-layer errors into echo HTTP errors.
// Client errors carry the underlying message; unexpected failures are
// reported as a generic 500 so internal details do not leak.
func httpError(err error) error {
	switch {
	case errors.Is(err, tenant.ErrMissingTenant), errors.Is(err, tenant.ErrInvalidTenant):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, tenant.ErrInvalidFilename):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, filter.ErrUnknownOperator):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if status, ok := awsErrorStatus[apiErr.ErrorCode()]; ok {
			if status >= http.StatusInternalServerError {
				return echo.NewHTTPError(status, "upstream service error")
			}
			return echo.NewHTTPError(status, apiErr.ErrorMessage())
		}
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
