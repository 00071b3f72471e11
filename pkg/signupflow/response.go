package signupflow

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// ErrorKind classifies how an API call failed, so callers can tell a
// well-formed server rejection apart from a gateway error page or a
// truncated body.
type ErrorKind string

const (
	// KindHTTPError is a non-2xx status with a parseable JSON error body.
	KindHTTPError ErrorKind = "http_error"
	// KindNonJSONBody is a non-2xx status whose body is not JSON, such as
	// an HTML error page from a proxy.
	KindNonJSONBody ErrorKind = "non_json_body"
	// KindMalformedJSON is a 2xx status whose body fails to decode.
	KindMalformedJSON ErrorKind = "malformed_json"
)

// APIError is the typed failure returned by every endpoint call.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%s, status %d): %s", e.Kind, e.Status, e.Message)
}

// errorBody is the standard error envelope the onboarding API returns.
type errorBody struct {
	Error string `json:"error"`
}

const maxErrorBodyBytes = 4 << 10

// decodeResponse applies the defensive parsing protocol shared by every
// call site: check the status first, branch on content type for error
// bodies, and never assume a 2xx body is well-formed JSON.
func decodeResponse[T any](resp *http.Response) (T, error) {
	var out T

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Only error bodies are capped: a proxy error page can be
		// arbitrarily large, while success payloads must survive intact.
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if err != nil {
			return out, &APIError{Kind: KindNonJSONBody, Status: resp.StatusCode, Message: fmt.Sprintf("reading response body: %v", err)}
		}
		if !isJSONContentType(resp.Header.Get("Content-Type")) {
			return out, &APIError{
				Kind:    KindNonJSONBody,
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("server error with non-JSON response: %s", snippet(body)),
			}
		}
		var eb errorBody
		if jsonErr := json.Unmarshal(body, &eb); jsonErr != nil || eb.Error == "" {
			return out, &APIError{
				Kind:    KindNonJSONBody,
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("server error with unreadable body: %s", snippet(body)),
			}
		}
		return out, &APIError{Kind: KindHTTPError, Status: resp.StatusCode, Message: eb.Error}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, &APIError{Kind: KindNonJSONBody, Status: resp.StatusCode, Message: fmt.Sprintf("reading response body: %v", err)}
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, &APIError{
			Kind:    KindMalformedJSON,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("invalid JSON in response: %v", err),
		}
	}
	return out, nil
}

func isJSONContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	const limit = 120
	if len(s) > limit {
		return s[:limit] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}
