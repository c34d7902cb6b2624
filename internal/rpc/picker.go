package rpc

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint can serve requests.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm selects how an endpoint is chosen.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Nodes more than this many blocks behind the best head are skipped.
	staleBlockThreshold = 3
	cacheTTL            = 5 * time.Minute
)

// ParseAlgorithm accepts "" as fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	default:
		return "", fmt.Errorf("unknown rpc algorithm %q", s)
	}
}

// Endpoint is a measured RPC URL.
type Endpoint struct {
	URL     string
	Latency time.Duration
	Head    uint64
	Healthy bool
}

// Picker chooses among measured endpoints. It is safe for concurrent use.
type Picker struct {
	algo Algorithm
	now  func() time.Time

	mu      sync.Mutex
	next    int
	cached  string
	expires time.Time
}

// NewPicker creates a new Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Algorithm returns the selection strategy.
func (p *Picker) Algorithm() Algorithm { return p.algo }

// Cached returns the last fastest winner if it is still fresh and among urls.
func (p *Picker) Cached(urls []string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == "" || !p.now().Before(p.expires) || !slices.Contains(urls, p.cached) {
		return "", false
	}
	return p.cached, true
}

// Pick returns the endpoint to use.
func (p *Picker) Pick(endpoints []Endpoint) (Endpoint, error) {
	candidates := fresh(endpoints)
	if len(candidates) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.algo {
	case AlgorithmRoundRobin:
		e := candidates[p.next%len(candidates)]
		p.next = (p.next + 1) % len(candidates)
		return e, nil
	case AlgorithmFailover:
		return candidates[0], nil
	default:
		e := slices.MinFunc(candidates, func(a, b Endpoint) int {
			if c := cmp.Compare(a.Latency, b.Latency); c != 0 {
				return c
			}
			// Same latency: prefer the higher head.
			return cmp.Compare(b.Head, a.Head)
		})
		p.cached = e.URL
		p.expires = p.now().Add(cacheTTL)
		return e, nil
	}
}

// fresh keeps healthy endpoints within staleBlockThreshold of the best head,
// preserving order.
func fresh(endpoints []Endpoint) []Endpoint {
	var best uint64
	for _, e := range endpoints {
		if e.Healthy && e.Head > best {
			best = e.Head
		}
	}
	var out []Endpoint
	for _, e := range endpoints {
		if e.Healthy && best-e.Head <= staleBlockThreshold {
			out = append(out, e)
		}
	}
	return out
}
