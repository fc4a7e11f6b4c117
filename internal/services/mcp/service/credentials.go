package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
)

const (
	credentialsHeader       = "X-Google-Credentials"
	credentialsBase64Header = "X-Google-Credentials-Base64"

	methodCallTool = "tools/call"
)

// credentialsFromHeader parses per-request credentials. It returns nil
// credentials when neither header is set.
func credentialsFromHeader(ctx context.Context, header http.Header) (*google.Credentials, error) {
	if raw := strings.TrimSpace(header.Get(credentialsHeader)); raw != "" {
		creds, err := gateway.ParseCredentials(ctx, []byte(raw))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeBadCredentials, "invalid JSON in X-Google-Credentials header", err)
		}
		return creds, nil
	}
	if encoded := strings.TrimSpace(header.Get(credentialsBase64Header)); encoded != "" {
		creds, err := gateway.DecodeCredentials(ctx, encoded)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeBadCredentials, "invalid base64 or JSON in X-Google-Credentials-Base64 header", err)
		}
		return creds, nil
	}
	return nil, nil
}

// requestCredentialsMiddleware scopes header credentials to a tool call.
// Invalid header content fails the call before the tool runs.
func requestCredentialsMiddleware(logger zerolog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodCallTool {
				return next(ctx, method, req)
			}
			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return next(ctx, method, req)
			}
			creds, err := credentialsFromHeader(ctx, extra.Header)
			if err != nil {
				logger.Warn().Err(err).Msg("rejected request credentials")
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				}, nil
			}
			if creds != nil {
				ctx = gateway.WithRequestCredentials(ctx, creds)
			}
			return next(ctx, method, req)
		}
	}
}

type credentialsRequest struct {
	Credentials       json.RawMessage `json:"credentials"`
	CredentialsBase64 string          `json:"credentials_base64"`
	CredentialsPath   string          `json:"credentials_path"`
}

type credentialsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleCredentials handles POST /credentials and swaps the process-wide
// credentials after building a client from them.
func (t *HTTPTransport) handleCredentials(w http.ResponseWriter, r *http.Request) {
	if t.credentials == nil {
		writeCredentialsError(w, http.StatusServiceUnavailable, "credential updates are not enabled")
		return
	}

	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeCredentialsError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	ctx := r.Context()
	var creds *google.Credentials
	var err error
	switch {
	case body.CredentialsBase64 != "":
		raw, decodeErr := base64.StdEncoding.DecodeString(strings.TrimSpace(body.CredentialsBase64))
		if decodeErr != nil {
			writeCredentialsError(w, http.StatusBadRequest, "Invalid base64 encoding: "+decodeErr.Error())
			return
		}
		if !json.Valid(raw) {
			writeCredentialsError(w, http.StatusBadRequest, "Invalid JSON in base64-decoded credentials")
			return
		}
		creds, err = gateway.ParseCredentials(ctx, raw)
	case hasCredentialsValue(body.Credentials):
		raw, status, message := inlineCredentials(body.Credentials)
		if status != http.StatusOK {
			writeCredentialsError(w, status, message)
			return
		}
		creds, err = gateway.ParseCredentials(ctx, raw)
	case strings.TrimSpace(body.CredentialsPath) != "":
		creds, err = gateway.LoadCredentials(ctx, body.CredentialsPath)
	default:
		writeCredentialsError(w, http.StatusBadRequest, "Missing 'credentials', 'credentials_base64', or 'credentials_path' in request body")
		return
	}
	if err == nil {
		err = t.credentials.Replace(ctx, creds)
	}
	if err != nil {
		t.logger.Warn().Err(err).Msg("credential update rejected")
		writeCredentialsError(w, http.StatusUnauthorized, "Invalid credentials: "+err.Error())
		return
	}

	t.logger.Info().Msg("credentials updated via HTTP endpoint")
	writeJSON(w, http.StatusOK, credentialsResponse{Success: true, Message: "Credentials updated successfully"})
}

func hasCredentialsValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) && !bytes.Equal(trimmed, []byte(`""`))
}

// inlineCredentials accepts the key as a JSON object or as a string holding
// JSON.
func inlineCredentials(raw json.RawMessage) ([]byte, int, string) {
	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '{':
		return trimmed, http.StatusOK, ""
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil || !json.Valid([]byte(s)) {
			return nil, http.StatusBadRequest, "Invalid JSON in credentials string"
		}
		return []byte(s), http.StatusOK, ""
	default:
		return nil, http.StatusBadRequest, "credentials must be a string or object"
	}
}

func writeCredentialsError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, credentialsResponse{Success: false, Error: message})
}
