// Package errors provides structured errors shared by the publishing core and
// the MCP surface. Codes double as the error_kind reported in tool results.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unclassified failure.
	CodeUnknown Code = "Unknown"

	// Precondition failures, detected before any remote call.
	CodeInvalidArgument Code = "InvalidArgument"
	CodeFileNotFound    Code = "FileNotFound"

	// Business-rule misses.
	CodeVersionNotFound Code = "VersionNotFound"
	CodeNotFound        Code = "NotFound"

	// Upstream and transport failures.
	CodeBadCredentials     Code = "BadCredentials"
	CodePermissionDenied   Code = "PermissionDenied"
	CodeRateLimited        Code = "RateLimited"
	CodeServiceUnavailable Code = "ServiceUnavailable"
	CodeUpstream           Code = "UpstreamError"
	CodeCanceled           Code = "Canceled"
)

// FromHTTPStatus maps an upstream HTTP status to a Code.
func FromHTTPStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case http.StatusUnauthorized:
		return CodeBadCredentials
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return CodeServiceUnavailable
	default:
		return CodeUpstream
	}
}

// HTTPStatus returns the status an HTTP endpoint should answer with for code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeFileNotFound:
		return http.StatusBadRequest
	case CodeBadCredentials:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound, CodeVersionNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
