package rpc

import (
	"context"
)

// HealthCheck pings a single RPC and returns whether it's healthy.
// A node is considered healthy if it responds within the probe timeout and
// its block is within staleBlockThreshold of bestBlock (pass 0 to skip the
// recency check).
func HealthCheck(ctx context.Context, url string, bestBlock uint64) (Endpoint, error) {
	res := probe(ctx, url)

	ep := Endpoint{
		URL:         url,
		Latency:     res.Latency,
		BlockNumber: res.BlockNumber,
		Healthy:     res.Err == nil,
		Checked:     true,
	}
	if res.Err == nil && isStale(res.BlockNumber, bestBlock) {
		ep.Healthy = false
	}
	return ep, res.Err
}
