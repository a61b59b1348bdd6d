package rpc

import (
	"context"

	"go.uber.org/zap"
)

// Selector chooses the RPC endpoint the balance fetcher uses. The winner is
// cached for five minutes, so repeated calls do not re-benchmark.
type Selector struct {
	picker    *Picker
	logger    *zap.Logger
	benchmark func(context.Context, []string) []BenchmarkResult
}

// NewSelector creates a Selector. logger may be nil.
func NewSelector(algo Algorithm, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		picker:    NewPicker(algo),
		logger:    logger.Named("rpc"),
		benchmark: Benchmark,
	}
}

// Select returns the best URL among urls. A single URL is returned without
// probing it.
func (s *Selector) Select(ctx context.Context, urls []string) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	if url, ok := s.picker.Cached(); ok {
		return url, nil
	}

	results := s.benchmark(ctx, urls)
	for _, r := range results {
		if r.Err != nil {
			s.logger.Warn("rpc endpoint unreachable", zap.String("url", r.URL), zap.Error(r.Err))
			continue
		}
		s.logger.Debug("rpc endpoint probed",
			zap.String("url", r.URL),
			zap.Duration("latency", r.Latency),
			zap.Uint64("block", r.BlockNumber))
	}

	winner, err := s.picker.Pick(ResultsToEndpoints(results))
	if err != nil {
		return "", err
	}
	s.logger.Info("rpc endpoint selected", zap.String("url", winner.URL), zap.String("algorithm", string(s.picker.algo)))
	return winner.URL, nil
}

// SelectBest picks the best RPC URL from the provided list using the named
// algorithm. It is a stateless wrapper around Selector for callers that run a
// single selection at startup.
func SelectBest(ctx context.Context, urls []string, algorithm string, logger *zap.Logger) (string, error) {
	algo, err := ParseAlgorithm(algorithm)
	if err != nil {
		return "", err
	}
	return NewSelector(algo, logger).Select(ctx, urls)
}
