package apiclient

import (
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ledger counts the retries scheduled per retry key. Requests that share a
// key share a counter, so concurrent calls to one endpoint draw on a single
// retry budget.
type ledger struct {
	mu     sync.Mutex
	counts map[string]int

	maxRetries int
	minDelay   time.Duration
	maxDelay   time.Duration
}

func newLedger(maxRetries int, minDelay, maxDelay time.Duration) *ledger {
	return &ledger{
		counts:     make(map[string]int),
		maxRetries: maxRetries,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
	}
}

// schedule records a retry for key and returns the delay to wait before it.
// ok is false when the budget for key is spent, in which case the entry is
// removed.
func (l *ledger) schedule(key string) (delay time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.counts[key]
	if count >= l.maxRetries {
		delete(l.counts, key)
		return 0, false
	}

	l.counts[key] = count + 1
	return retryablehttp.DefaultBackoff(l.minDelay, l.maxDelay, count, nil), true
}

func (l *ledger) clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.counts, key)
}

func (l *ledger) count(key string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.counts[key]
	return n, ok
}
