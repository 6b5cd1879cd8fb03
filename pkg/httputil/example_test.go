package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/fractal/pkg/httputil"
)

func ExampleRetry() {
	attempts := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 2 {
			return &httputil.RetryableError{Err: errors.New("503 service unavailable")}
		}
		return nil
	})
	fmt.Println(attempts, err)
	// Output: 2 <nil>
}
