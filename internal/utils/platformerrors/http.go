package platformerrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response, mapping the
// error type to a status code. Internal details are logged, not leaked.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
			Error: &HTTPErrorDetail{Message: "unknown error", Type: "internal_error"},
		})
		return
	}

	LogError(log, err)

	status := ErrorTypeToHTTPStatus(err.Type)
	message := err.Message
	if status >= http.StatusInternalServerError {
		// Upstream and internal failures surface generically.
		message = "An error occurred while processing your request"
	}

	c.JSON(status, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   message,
			Type:      errorTypeToString(err.Type),
			Code:      err.UUID,
			RequestID: err.RequestID,
		},
	})
}

// WriteError writes a generic error as an HTTP response. PlatformErrors keep
// their status mapping; anything else is treated as internal.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if platformErr := GetPlatformError(err); platformErr != nil {
		WriteHTTPError(c, platformErr, log)
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("unhandled error")
	}
	c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: "An error occurred while processing your request",
			Type:    "internal_error",
		},
	})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, HTTPErrorResponse{
		Error: &HTTPErrorDetail{Message: message, Type: "not_found_error"},
	})
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, HTTPErrorResponse{
		Error: &HTTPErrorDetail{Message: message, Type: "validation_error"},
	})
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, HTTPErrorResponse{
		Error: &HTTPErrorDetail{Message: message, Type: "unauthorized_error"},
	})
}

func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeUnauthorized:
		return "unauthorized_error"
	case ErrorTypeForbidden:
		return "forbidden_error"
	case ErrorTypeNotImplemented:
		return "not_implemented_error"
	case ErrorTypeExternal:
		return "external_error"
	case ErrorTypeDatabaseError, ErrorTypeInternal:
		fallthrough
	default:
		return "internal_error"
	}
}
