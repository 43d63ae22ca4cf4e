package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNetworkUnavailable wraps transport-level failures: DNS, connection
// refused, timeouts. These never trigger the refresh protocol.
var ErrNetworkUnavailable = errors.New("network unavailable")

// ErrRefreshFailed means no refresh credential was stored or the refresh
// endpoint rejected it. The authorizing transport forces a logout and every
// request queued behind the failed refresh surfaces this error.
var ErrRefreshFailed = errors.New("refresh failed")

// Error is a non-2xx response from the backend. Validation failures (400)
// arrive field-keyed and are preserved in Fields so form surfaces can map
// them back onto inputs.
type Error struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Detail)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for field, messages := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(messages, "; ")))
		}
		return fmt.Sprintf("api: %d %s", e.StatusCode, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsValidation reports whether err is a field-keyed 400 response.
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && len(apiErr.Fields) > 0
}

// decodeError turns an error response into an *Error. The backend emits
// either {"detail": "..."} or a field-keyed map of message lists.
func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	for key, raw := range payload {
		if key == "detail" {
			var detail string
			if json.Unmarshal(raw, &detail) == nil {
				apiErr.Detail = detail
			}
			continue
		}
		var messages []string
		if json.Unmarshal(raw, &messages) == nil {
			if apiErr.Fields == nil {
				apiErr.Fields = map[string][]string{}
			}
			apiErr.Fields[key] = messages
			continue
		}
		var single string
		if json.Unmarshal(raw, &single) == nil {
			if apiErr.Fields == nil {
				apiErr.Fields = map[string][]string{}
			}
			apiErr.Fields[key] = []string{single}
		}
	}
	return apiErr
}
