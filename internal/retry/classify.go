package retry

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// HTTPError is the shape an outbound call's error carries when it
// originated from a non-2xx response: a status code and an optional
// message. The backend (and the httpclient layer in front of it)
// sometimes delivers this JSON-encoded as the error string itself, which
// ParseHTTPError unwraps.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "http error " + strconv.Itoa(e.StatusCode)
}

var retryableSubstrings = []string{
	"econnreset",
	"etimedout",
	"socket hang up",
	"network",
}

// IsRetryableError reports whether err should trigger another attempt:
// HTTP 429 or 5xx, or a message matching known transient-transport
// substrings (case-insensitive).
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	if parsed, ok := ParseHTTPError(err); ok {
		if parsed.StatusCode == 429 || parsed.StatusCode >= 500 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range retryableSubstrings {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// ParseHTTPError attempts to extract a status code and message from err's
// text, for the case where an upstream error body arrives as a
// JSON-in-a-string payload: {"statusCode": N, "message": "..."}.
func ParseHTTPError(err error) (HTTPError, bool) {
	if err == nil {
		return HTTPError{}, false
	}
	var body struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}
	text := err.Error()
	start := strings.Index(text, "{")
	if start < 0 {
		return HTTPError{}, false
	}
	if jsonErr := json.Unmarshal([]byte(text[start:]), &body); jsonErr != nil {
		return HTTPError{}, false
	}
	if body.StatusCode == 0 && body.Message == "" {
		return HTTPError{}, false
	}
	return HTTPError{StatusCode: body.StatusCode, Message: body.Message}, true
}
