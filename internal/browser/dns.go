package browser

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DNSLatency resolves domain and returns how long the lookup took. The
// caller bounds the wait through ctx; a timeout surfaces as an error so the
// probe layer can record an Unknown finding.
func (t *Telemetry) DNSLatency(ctx context.Context, domain string) (time.Duration, error) {
	resolver := &net.Resolver{}

	start := time.Now()
	if _, err := resolver.LookupHost(ctx, domain); err != nil {
		return 0, fmt.Errorf("resolve %s: %w", domain, err)
	}
	return time.Since(start), nil
}
