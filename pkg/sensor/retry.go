package sensor

import (
	"time"

	"github.com/golang/glog"
)

// Retry calls fn until it succeeds, at most maxRetries+1 times, waiting
// delay between attempts. The failure of the last attempt is kept in
// the returned *RetryError.
func Retry(maxRetries int, delay time.Duration, fn func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && delay > 0 {
			time.Sleep(delay)
		}
		if err = fn(); err == nil {
			return nil
		}
		glog.V(3).Infof("attempt %d/%d failed: %v", attempt+1, maxRetries+1, err)
	}
	return &RetryError{Attempts: maxRetries + 1, Last: err}
}
