package source

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Resolver maps series page hosts to sources.
type Resolver struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{sources: make(map[string]Source)}
}

// Register binds host to src, replacing any earlier binding.
func (r *Resolver) Register(host string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[NormalizeHost(host)] = src
}

// Resolve returns the source for the host of ref.
func (r *Resolver) Resolve(ref string) (Source, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid series url %q", ErrNoSource, ref)
	}
	host := NormalizeHost(u.Host)

	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[host]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, host)
	}
	return src, nil
}

// Hosts returns the registered hosts, sorted.
func (r *Resolver) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hosts := make([]string, 0, len(r.sources))
	for h := range r.sources {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// NormalizeHost lower-cases host and drops the port and a leading "www." or
// "v6." label.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	for _, prefix := range []string{"www.", "v6."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return host
}
