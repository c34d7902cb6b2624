package rpc

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devMonkRahul/w3send/internal/chain"
)

// pingTimeout bounds a single endpoint ping.
const pingTimeout = 5 * time.Second

// Result is the outcome of pinging one endpoint.
type Result struct {
	URL     string
	Latency time.Duration
	Head    uint64
	Err     error
}

// Ping dials url and measures one eth_blockNumber round trip.
func Ping(ctx context.Context, url string) Result {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	c, err := chain.Dial(ctx, url)
	if err != nil {
		return Result{URL: url, Err: err}
	}
	defer c.Close()

	latency, head, err := c.Ping(ctx)
	return Result{URL: url, Latency: latency, Head: head, Err: err}
}

// Benchmark pings every url concurrently. Results keep the input order;
// a failing endpoint is reported in its Result, not as an error.
func Benchmark(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = Ping(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Endpoints converts ping results for the Picker.
func Endpoints(results []Result) []Endpoint {
	out := make([]Endpoint, 0, len(results))
	for _, r := range results {
		out = append(out, Endpoint{
			URL:     r.URL,
			Latency: r.Latency,
			Head:    r.Head,
			Healthy: r.Err == nil,
		})
	}
	return out
}
