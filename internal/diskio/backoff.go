package diskio

import "time"

// defaultBackoff is the production RetryPolicy backoff: a flat 5-minute
// wait before every retry, matching spec.md §4.8's "retries indefinitely
// ... with a 5-minute backoff".
func defaultBackoff(attempt int) <-chan struct{} {
	return after(5 * time.Minute)
}

func after(d time.Duration) <-chan struct{} {
	ch := make(chan struct{})

	go func() {
		time.Sleep(d)
		close(ch)
	}()

	return ch
}
