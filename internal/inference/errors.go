package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidEndpoint marks a provider endpoint that cannot form a valid
// request URL. It fails the whole request, before per-item dispatch.
var ErrInvalidEndpoint = errors.New("invalid inference endpoint")

// APIError is a non-2xx reply from the provider.
type APIError struct {
	StatusCode    int
	RemoteMessage string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("inference API returned status %d: %s", e.StatusCode, e.Message())
}

// StatusText returns the textual form of the remote status code.
func (e *APIError) StatusText() string {
	return http.StatusText(e.StatusCode)
}

// Message returns the remote-supplied message when one was present,
// otherwise a generic description. Used verbatim for per-item failures.
func (e *APIError) Message() string {
	if e.RemoteMessage != "" {
		return e.RemoteMessage
	}
	return fmt.Sprintf("inference request failed with status %d %s", e.StatusCode, e.StatusText())
}

// UserMessage translates the remote status into operator guidance. Applied
// only to request-level failures, where the goal is fixing configuration
// rather than explaining a single image.
func (e *APIError) UserMessage() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "the configured API key is invalid or missing"
	case http.StatusForbidden:
		return "access to the model was forbidden; check that the API key is correct, that it has permission for this model, that the model identifier uses the project/version format, and that the model deployment is published"
	case http.StatusNotFound:
		return "the configured model was not found; check that the model identifier uses the project/version format"
	default:
		return e.Message()
	}
}

// remoteErrorBody is the error shape most providers reply with.
type remoteErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	var decoded remoteErrorBody
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Message != "" {
			apiErr.RemoteMessage = decoded.Message
		} else if decoded.Error != "" {
			apiErr.RemoteMessage = decoded.Error
		}
	}
	return apiErr
}
