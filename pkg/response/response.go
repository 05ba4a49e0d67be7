package response

import (
	"log"

	"backend/pkg/apperror"
)

// Response represents a standard API response format
type Response struct {
	Status        string      `json:"status"`      // "success" or "error"
	StatusCode    int         `json:"status_code"` // HTTP status code
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FromError classifies err and builds the matching error response. Unclassified
// errors are logged with their correlation id and surfaced as a generic message.
func FromError(err error) (int, Response) {
	appErr := apperror.Classify(err)
	status := appErr.Kind.HTTPStatus()

	if appErr.Kind == apperror.Internal {
		log.Printf("internal error [%s]: %v", appErr.CorrelationID, err)
		return status, Response{
			Status:        "error",
			StatusCode:    status,
			Error:         appErr.Message,
			CorrelationID: appErr.CorrelationID,
		}
	}

	return status, Error(status, appErr.Message)
}
