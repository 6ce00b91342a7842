package usecase

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

const defaultProbeTimeout = 30 * time.Second

// ProbeResult is the outcome of one preflight probe.
type ProbeResult struct {
	Name      string
	LatencyMS int64
	Err       error
}

// Preflight probes every configured deployment service concurrently.
// It never fails the whole operation because one service is down; each
// probe reports its own error.
type Preflight struct {
	probers []ports.ServiceProber
	timeout time.Duration
}

type PreflightOption func(*Preflight)

// WithProbeTimeout bounds each individual probe.
func WithProbeTimeout(d time.Duration) PreflightOption {
	return func(p *Preflight) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPreflight(probers []ports.ServiceProber, opts ...PreflightOption) *Preflight {
	p := &Preflight{
		probers: probers,
		timeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs all probes and returns one result per prober, sorted by name.
func (p *Preflight) Execute(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, len(p.probers))

	g, ctx := errgroup.WithContext(ctx)
	for i, prober := range p.probers {
		i, prober := i, prober
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			start := time.Now()
			err := prober.Probe(probeCtx)
			results[i] = ProbeResult{
				Name:      prober.Name(),
				LatencyMS: time.Since(start).Milliseconds(),
				Err:       err,
			}
			return nil // probe failures are reported, not propagated
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].Name < results[b].Name })
	return results
}

// Failures counts failed probes.
func Failures(results []ProbeResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
