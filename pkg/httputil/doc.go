// Package httputil provides HTTP helpers for the calendar sync client.
//
//   - [Retry]: retries transient failures with exponential backoff
//   - [CheckStatus]: maps HTTP status codes to structured errors and marks
//     the transient ones retryable
//
// Transient failures are network errors, 5xx responses and 429 rate
// limits. Everything else (4xx) is returned immediately:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckStatus(resp)
//	})
package httputil
