// Package innerbalancer declares the contract the host-regex balancer
// delegates to once it has restricted the fleet down to one table's
// pool. The inner balancer is external to this repository; this package
// only carries the interface it must satisfy, a registry lookup, and a
// deterministic reference implementation used by tests and by any
// caller that has not wired in a real per-table balancer.
package innerbalancer

import (
	"context"

	"github.com/upcloud/accumulo/pool"
	"github.com/upcloud/accumulo/tablet"
)

// Balancer is the contract an inner, per-table balancer must satisfy.
// Both methods receive only the restricted pool view for the table being
// balanced; the inner balancer must not assume it is seeing the complete
// fleet.
type Balancer interface {
	// GetAssignments assigns each tablet in unassigned to a server in
	// view, writing its decisions into outAssignments.
	GetAssignments(ctx context.Context, view *pool.View, unassigned map[tablet.Extent]tablet.ServerID, outAssignments map[tablet.Extent]tablet.ServerID) error

	// Balance proposes migrations for the table given its current
	// restricted view and the set of tablets already in motion. It
	// returns a next-tick delay hint in milliseconds.
	Balance(ctx context.Context, view *pool.View, migrations map[tablet.Extent]struct{}) (delayMs int64, proposals []tablet.Migration, err error)
}

// Registry looks up the inner balancer responsible for a table. It is
// external to the core: real deployments plug in whatever per-table
// balancing strategy they want (load-based, round robin, pluggable
// per-table policy) keyed by table id.
type Registry interface {
	BalancerForTable(table tablet.TableID) Balancer
}
