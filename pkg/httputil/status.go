package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/matzehuels/fractal/pkg/errors"
)

// maxErrorBody bounds how much of an error response is quoted.
const maxErrorBody = 512

// CheckStatus returns nil for 2xx responses. Other statuses become a
// structured error carrying a short excerpt of the body; 429 and 5xx are
// wrapped in [RetryableError].
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	detail := fmt.Sprintf("%s %s: %d %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &RetryableError{Err: errors.Wrap(errors.ErrCodeRateLimited,
			&errors.RateLimitedError{RetryAfter: retryAfter, Message: msg}, "%s", detail)}
	case resp.StatusCode >= 500:
		return &RetryableError{Err: errors.New(errors.ErrCodeNetwork, "%s", detail)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrCodeUnauthorized, "%s", detail)
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errors.New(errors.ErrCodeNotFound, "%s", detail)
	case resp.StatusCode == http.StatusConflict:
		return errors.New(errors.ErrCodeConflict, "%s", detail)
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s", detail)
}
