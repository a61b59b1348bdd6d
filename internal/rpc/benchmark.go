package rpc

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
)

// pingTimeout bounds a single endpoint probe.
const pingTimeout = 5 * time.Second

// BenchmarkResult holds the result of a single endpoint benchmark.
type BenchmarkResult struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Benchmark pings all URLs in parallel with eth_blockNumber. Results keep the
// order of urls; a failed probe is reported in its Err, never as a group error.
func Benchmark(ctx context.Context, urls []string) []BenchmarkResult {
	results := make([]BenchmarkResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)

	for i, url := range urls {
		g.Go(func() error {
			results[i] = probe(gctx, url)
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return results
}

func probe(ctx context.Context, url string) BenchmarkResult {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res := BenchmarkResult{URL: url}
	c, err := chain.Dial(ctx, url)
	if err != nil {
		res.Err = err
		return res
	}
	defer c.Close()

	res.Latency, res.BlockNumber, res.Err = c.Ping(ctx)
	return res
}

// ResultsToEndpoints converts benchmark results to picker Endpoints.
// All returned endpoints have Checked: true since they have been actively tested.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		endpoints = append(endpoints, Endpoint{
			URL:         r.URL,
			Latency:     r.Latency,
			BlockNumber: r.BlockNumber,
			Healthy:     r.Err == nil,
			Checked:     true,
		})
	}
	return endpoints
}
