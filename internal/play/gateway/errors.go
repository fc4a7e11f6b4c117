package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// APIError is an upstream HTTP failure.
type APIError struct {
	Op      string
	Status  int
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	text := e.Message
	if text == "" {
		text = http.StatusText(e.Status)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: HTTP %d %s: %s", e.Op, e.Status, e.Reason, text)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, text)
}

// HTTPStatus exposes the status to the retry classifier and error codes.
func (e *APIError) HTTPStatus() int {
	return e.Status
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func normalizeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		out := &APIError{Op: op, Status: gerr.Code, Message: gerr.Message}
		if len(gerr.Errors) > 0 {
			out.Reason = gerr.Errors[0].Reason
			if out.Message == "" {
				out.Message = gerr.Errors[0].Message
			}
		}
		return out
	}
	return fmt.Errorf("%s: %w", op, err)
}
