package probe

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options tune how a probe set is executed.
type Options struct {
	// Timeout bounds each individual probe.
	Timeout time.Duration

	// Limit caps concurrently running probes.
	Limit int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Limit <= 0 {
		o.Limit = 8
	}
	return o
}

// Run executes every probe against src and returns the findings in probe
// declaration order, regardless of completion order. Probes run
// concurrently, each bounded by the per-probe timeout. A probe that fails
// or times out contributes a single Unknown finding carrying the error;
// one slow or broken probe never sinks the whole diagnosis.
func Run(ctx context.Context, src Source, probes []Probe, opts Options) []Finding {
	opts = opts.withDefaults()

	results := make([][]Finding, len(probes))
	var g errgroup.Group
	g.SetLimit(opts.Limit)

	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
			defer cancel()

			findings, err := p.run(probeCtx, src)
			if err != nil {
				results[i] = []Finding{{
					Probe:    p.Name,
					Kind:     KindUnknown,
					Category: p.Category,
					Metric:   p.Name,
					Unknown:  true,
					Err:      err.Error(),
				}}
				return nil
			}
			for j := range findings {
				findings[j].Probe = p.Name
			}
			results[i] = findings
			return nil
		})
	}
	// Probes report errors as Unknown findings, never through the group.
	_ = g.Wait()

	var all []Finding
	for _, fs := range results {
		all = append(all, fs...)
	}
	return all
}
