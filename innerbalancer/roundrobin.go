package innerbalancer

import (
	"context"

	"github.com/upcloud/accumulo/pool"
	"github.com/upcloud/accumulo/tablet"
)

var _ Balancer = (*RoundRobin)(nil)

// RoundRobin is a deterministic reference Balancer: it assigns each
// unassigned tablet to the next server in the view, wrapping around, and
// never proposes migrations on its own (all rebalancing it would want to
// do is already handled by the host-regex balancer's OOB scanner moving
// tablets into the right pool; within a pool it is content to leave
// well alone). It exists so the control loop has something real to
// delegate to before a caller wires in a load-aware balancer.
type RoundRobin struct {
	// DelayMs is returned from Balance on every call. It defaults to 0,
	// which the host-regex balancer's floor of 5000ms will win against.
	DelayMs int64
}

// GetAssignments implements Balancer.
func (r *RoundRobin) GetAssignments(ctx context.Context, view *pool.View, unassigned map[tablet.Extent]tablet.ServerID, outAssignments map[tablet.Extent]tablet.ServerID) error {
	servers := view.Servers()
	if len(servers) == 0 {
		return nil
	}

	// Iterate extents in a stable order so that repeated calls against
	// an unchanged unassigned set produce the same assignment.
	extents := sortedExtents(unassigned)

	i := 0
	for _, extent := range extents {
		outAssignments[extent] = servers[i%len(servers)]
		i++
	}

	return nil
}

// Balance implements Balancer. It never proposes migrations of its own.
func (r *RoundRobin) Balance(ctx context.Context, view *pool.View, migrations map[tablet.Extent]struct{}) (int64, []tablet.Migration, error) {
	return r.DelayMs, nil, nil
}

func sortedExtents(unassigned map[tablet.Extent]tablet.ServerID) []tablet.Extent {
	extents := make([]tablet.Extent, 0, len(unassigned))
	for extent := range unassigned {
		extents = append(extents, extent)
	}

	for i := 1; i < len(extents); i++ {
		for j := i; j > 0 && extentLess(extents[j], extents[j-1]); j-- {
			extents[j], extents[j-1] = extents[j-1], extents[j]
		}
	}

	return extents
}

func extentLess(a, b tablet.Extent) bool {
	if a.TableID != b.TableID {
		return a.TableID < b.TableID
	}
	if a.StartRow != b.StartRow {
		return a.StartRow < b.StartRow
	}
	return a.EndRow < b.EndRow
}

var _ Registry = (*StaticRegistry)(nil)

// StaticRegistry is a Registry that hands out the same Balancer for
// every table, or a table-specific override if one was set.
type StaticRegistry struct {
	Default   Balancer
	ByTableID map[tablet.TableID]Balancer
}

// NewStaticRegistry creates a StaticRegistry whose default balancer for
// every table is a fresh RoundRobin.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		Default:   &RoundRobin{},
		ByTableID: map[tablet.TableID]Balancer{},
	}
}

// SetBalancer overrides the balancer used for a specific table.
func (r *StaticRegistry) SetBalancer(table tablet.TableID, balancer Balancer) {
	r.ByTableID[table] = balancer
}

// BalancerForTable implements Registry.
func (r *StaticRegistry) BalancerForTable(table tablet.TableID) Balancer {
	if b, ok := r.ByTableID[table]; ok {
		return b
	}
	return r.Default
}
