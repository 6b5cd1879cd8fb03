package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	fractalerrors "github.com/matzehuels/fractal/pkg/errors"
)

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("503")}
	permanent := errors.New("400")

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"first try", []error{nil}, 1, false},
		{"recovers", []error{transient, transient, nil}, 3, false},
		{"permanent stops", []error{permanent, nil}, 1, true},
		{"exhausted", []error{transient, transient, transient, nil}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), 3, time.Millisecond, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("boom")}
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want context.Canceled after 1", err, calls)
	}
}

func TestRetryZeroAttempts(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), 0, time.Millisecond, func() error { calls++; return nil })
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		status    int
		header    string
		code      fractalerrors.Code
		retryable bool
	}{
		{http.StatusOK, "", "", false},
		{http.StatusNoContent, "", "", false},
		{http.StatusTooManyRequests, "7", fractalerrors.ErrCodeRateLimited, true},
		{http.StatusBadGateway, "", fractalerrors.ErrCodeNetwork, true},
		{http.StatusUnauthorized, "", fractalerrors.ErrCodeUnauthorized, false},
		{http.StatusNotFound, "", fractalerrors.ErrCodeNotFound, false},
		{http.StatusGone, "", fractalerrors.ErrCodeNotFound, false},
		{http.StatusBadRequest, "", fractalerrors.ErrCodeInvalidInput, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("details"))
			}))
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/events")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			err = CheckStatus(resp)
			if tt.code == "" {
				if err != nil {
					t.Errorf("CheckStatus() = %v, want nil", err)
				}
				return
			}
			if !fractalerrors.Is(err, tt.code) {
				t.Errorf("CheckStatus() = %v, want code %s", err, tt.code)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", IsRetryable(err), tt.retryable)
			}
			if !strings.Contains(err.Error(), "details") {
				t.Errorf("error %q should quote the body", err)
			}
			if tt.status == http.StatusTooManyRequests {
				var rl *fractalerrors.RateLimitedError
				if !errors.As(err, &rl) || rl.RetryAfter != 7 {
					t.Errorf("RetryAfter = %+v", rl)
				}
			}
		})
	}
}

func TestRetryDelay(t *testing.T) {
	limited := func(secs int) error {
		return &RetryableError{Err: fractalerrors.Wrap(fractalerrors.ErrCodeRateLimited,
			&fractalerrors.RateLimitedError{RetryAfter: secs}, "slow down")}
	}
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"plain", &RetryableError{Err: errors.New("503")}, time.Second},
		{"no retry-after", limited(0), time.Second},
		{"longer retry-after", limited(4), 4 * time.Second},
		{"capped", limited(3600), MaxRetryAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryDelay(tt.err, time.Second); got != tt.want {
				t.Errorf("retryDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}
