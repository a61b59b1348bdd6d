package tracker

import (
	"time"

	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/metrics"
)

// DefaultStagger is the delay between a balance fetch and the transaction
// fetch that follows an address change.
const DefaultStagger = 500 * time.Millisecond

// Option configures a Tracker.
type Option func(*Tracker)

// WithStagger sets the transaction fetch delay. Zero or less starts both
// fetches together.
func WithStagger(d time.Duration) Option {
	return func(t *Tracker) { t.stagger = d }
}

// WithLogger sets the logger. The tracker logs under the "tracker" name.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics records fetch outcomes and dropped triggers.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithFetchTimeout bounds each fetch. Zero leaves fetches bounded only by
// the source's own timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.fetchTimeout = d }
}
