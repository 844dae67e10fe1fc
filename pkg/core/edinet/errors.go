package edinet

import (
	"fmt"
	"sort"
	"sync"
)

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status=%d", e.Endpoint, e.Status)
}

// ErrorList accumulates non-fatal failures across a run. It is safe for
// concurrent use; the zero value is ready.
type ErrorList struct {
	mu    sync.Mutex
	items []string
}

// Add records err. Nil errors are ignored.
func (l *ErrorList) Add(err error) {
	if err == nil {
		return
	}
	l.Addf("%s", err.Error())
}

// Addf records a formatted message.
func (l *ErrorList) Addf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	l.items = append(l.items, msg)
	l.mu.Unlock()
}

// Len returns the number of recorded messages, duplicates included.
func (l *ErrorList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Sorted returns the unique messages in lexical order.
func (l *ErrorList) Sorted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool, len(l.items))
	out := make([]string, 0, len(l.items))
	for _, msg := range l.items {
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out = append(out, msg)
	}
	sort.Strings(out)
	return out
}
