// Package macro implements the Macro/COT adapter contract (§4.12): an
// opaque, source-tagged structured summary backed by a stale-preferred,
// coalesced-refresh TTL cache (§5 "in-memory macro-data cache"). The
// signal engine and loss analyzer do not read these summaries; the only
// reader is the scheduler's per-cycle sweep, which records each source's
// staleness.
package macro

import (
	"context"
	"time"
)

// Summary is the opaque blob every macro source returns. Fields holds
// named keys (e.g. "cot_net_long_pct" from a COT source,
// "correlation_btcusd_ethusd" from a BTCUSD/ETHUSD correlation source)
// whose shape is not interpreted beyond presence/absence (§3 "MacroSummary").
type Summary struct {
	SourceName string
	AsOf       time.Time
	Fields     map[string]any
	Stale      bool
}

// emptyStale is returned whenever a source errors or has never been
// fetched: a missing summary is stale, never an error (§3).
func emptyStale(source string) Summary {
	return Summary{SourceName: source, Stale: true, Fields: map[string]any{}}
}

// Source is one concrete macro/COT provider (COT positioning or
// cross-asset correlation). Each owns its own
// provider-specific fetch but returns the common Summary shape.
type Source interface {
	Name() string
	FetchSummary(ctx context.Context) (Summary, error)
}
