package resolve

import (
	"context"
	"sync"
)

// FakeResolver is a test double that resolves hosts according to a static
// map and counts how many times Resolve was called, so tests can assert
// that IP-based mode never invokes resolution.
type FakeResolver struct {
	mu      sync.Mutex
	names   map[string]string
	failing map[string]bool
	calls   int
}

// NewFakeResolver creates a FakeResolver that resolves host to names[host],
// or returns host unchanged if it has no entry.
func NewFakeResolver(names map[string]string) *FakeResolver {
	return &FakeResolver{
		names:   names,
		failing: map[string]bool{},
	}
}

// FailFor makes Resolve return an error for the given host, simulating a
// transient DNS failure.
func (r *FakeResolver) FailFor(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failing[host] = true
}

// Calls returns the number of times Resolve has been called.
func (r *FakeResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

// Resolve implements Resolver.
func (r *FakeResolver) Resolve(ctx context.Context, host string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++

	if r.failing[host] {
		return "", &resolveError{host: host}
	}

	if name, ok := r.names[host]; ok {
		return name, nil
	}

	return host, nil
}

type resolveError struct {
	host string
}

func (e *resolveError) Error() string {
	return "could not resolve host: " + e.host
}
