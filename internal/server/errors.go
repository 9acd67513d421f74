package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	investordomain "github.com/smallbiznis/investorhub/internal/investor/domain"
	"github.com/smallbiznis/investorhub/internal/observability/logger"
	recorddomain "github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/internal/statement"
	"go.uber.org/zap"
)

const (
	messageServerError = "Server error, please try again later"
	messageNotFound    = "Investor not found"
)

// errorResponse is the envelope every failure is rendered with.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrUnknownAction   = errors.New("unknown_action")
	ErrConsentDeclined = errors.New("consent_declined")
	ErrRouteNotFound   = errors.New("route_not_found")
)

// ErrorHandlingMiddleware renders the last handler error as a {success:false}
// envelope. With strict set the HTTP status reflects the error class,
// otherwise every response is 200.
func ErrorHandlingMiddleware(strict bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		renderError(c, lastErr.Err, strict)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// recoveryHandler renders recovered panics through the same envelope.
func recoveryHandler(strict bool) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		_ = c.Error(err)
		renderError(c, err, strict)
	}
}

func renderError(c *gin.Context, err error, strict bool) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		c.Set("server_error", true)
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("action", c.GetString("action")),
			zap.String("op", errorOp(err)),
			zap.Error(err),
		)
	}
	if !strict {
		status = http.StatusOK
	}
	c.AbortWithStatusJSON(status, payload)
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Message: messageServerError}
	}

	if field, ok := investordomain.ValidationField(err); ok {
		return http.StatusBadRequest, errorResponse{
			Message: validationMessage(err, field),
			Field:   field,
		}
	}

	switch {
	case errors.Is(err, investordomain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: messageNotFound}
	case errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound, errorResponse{Message: "Not found"}
	case errors.Is(err, ErrConsentDeclined):
		return http.StatusBadRequest, errorResponse{Message: "Consent must be accepted", Field: "consent"}
	case errors.Is(err, ErrUnknownAction):
		return http.StatusBadRequest, errorResponse{Message: "Unknown action", Field: "action"}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{Message: "Invalid request"}
	default:
		return http.StatusInternalServerError, errorResponse{Message: messageServerError}
	}
}

func validationMessage(err error, field string) string {
	switch {
	case errors.Is(err, investordomain.ErrInvalidConsentType):
		return "Invalid consent type"
	case field == "page_token":
		return "Invalid page token"
	default:
		return "Missing required field: " + field
	}
}

// classifyErrorForLog returns the error type and code logged with the request line.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if field, ok := investordomain.ValidationField(err); ok {
		return "validation_error", "invalid_" + field
	}

	switch {
	case errors.Is(err, investordomain.ErrNotFound), errors.Is(err, ErrRouteNotFound):
		return "not_found", "not_found"
	case errors.Is(err, ErrConsentDeclined), errors.Is(err, ErrUnknownAction), errors.Is(err, ErrInvalidRequest):
		return "validation_error", err.Error()
	case errors.Is(err, statement.ErrEmptyInvestor):
		return "internal_error", "statement"
	case recorddomain.IsStoreError(err):
		return "store_error", errorOp(err)
	default:
		var svcErr *investordomain.ServiceError
		if errors.As(err, &svcErr) {
			return "service_error", svcErr.Op
		}
		return "internal_error", "internal_error"
	}
}

func errorOp(err error) string {
	var storeErr *recorddomain.StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Op
	}
	var svcErr *investordomain.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Op
	}
	return ""
}
