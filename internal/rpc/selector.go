package rpc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/devMonkRahul/w3send/internal/chain"
)

// Selector dials the best endpoint of a network.
type Selector struct {
	picker *Picker
	log    zerolog.Logger
}

// NewSelector creates a new Selector with the given algorithm. Reuse one
// Selector across connects so round-robin rotates and the fastest winner is cached.
func NewSelector(algo Algorithm, log zerolog.Logger) *Selector {
	return &Selector{picker: NewPicker(algo), log: log}
}

// WithLogger returns a copy of s that logs to log and shares its picker state.
func (s *Selector) WithLogger(log zerolog.Logger) *Selector {
	return &Selector{picker: s.picker, log: log}
}

// Connect returns a client for one of urls. A single URL is dialed without
// pinging. Failover pings URLs in order and stops at the first that answers;
// the other algorithms ping all of them concurrently.
func (s *Selector) Connect(ctx context.Context, urls []string) (*chain.EVMClient, error) {
	switch {
	case len(urls) == 0:
		return nil, ErrNoHealthyRPC
	case len(urls) == 1:
		return chain.Dial(ctx, urls[0])
	}

	if u, ok := s.picker.Cached(urls); ok {
		s.log.Debug().Str("rpc", u).Msg("using cached rpc")
		return chain.Dial(ctx, u)
	}

	var results []Result
	if s.picker.Algorithm() == AlgorithmFailover {
		for _, u := range urls {
			r := Ping(ctx, u)
			results = append(results, r)
			if r.Err == nil {
				break
			}
			s.log.Warn().Err(r.Err).Str("rpc", u).Msg("rpc unavailable, trying next")
		}
	} else {
		results = Benchmark(ctx, urls)
	}

	ep, err := s.picker.Pick(Endpoints(results))
	if err != nil {
		return nil, fmt.Errorf("%w (tried %d)", err, len(results))
	}
	s.log.Debug().
		Str("rpc", ep.URL).
		Dur("latency", ep.Latency).
		Uint64("head", ep.Head).
		Str("algorithm", string(s.picker.Algorithm())).
		Msg("rpc selected")
	return chain.Dial(ctx, ep.URL)
}
