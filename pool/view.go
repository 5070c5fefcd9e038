// Package pool groups the live tablet server fleet into named pools using
// operator-supplied host regexes, and hands each pool a restricted,
// order-preserving view of the servers that belong to it.
package pool

import (
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/upcloud/accumulo/tablet"
)

// View is an ordered ServerID -> ServerStatus mapping. It is the same
// structure used for the full fleet (the "current" map the master passes
// in) and for each pool's restricted sub-map, so that an inner balancer
// written against View cannot tell whether it has been given the whole
// fleet or a slice of it.
//
// View is backed by a comparator-driven balanced tree rather than a plain
// Go map because the inner balancer depends on iterating servers in a
// stable order (see FirstKey, used by the OOB scanner to pick a
// deterministic migration target).
type View struct {
	tree *treemap.Map
	cmp  tablet.Comparator
}

// NewView creates an empty View ordered by cmp.
func NewView(cmp tablet.Comparator) *View {
	return &View{
		tree: treemap.NewWith(func(a, b interface{}) int {
			return cmp(a.(tablet.ServerID), b.(tablet.ServerID))
		}),
		cmp: cmp,
	}
}

// Put inserts or replaces the status for a server.
func (v *View) Put(server tablet.ServerID, status tablet.ServerStatus) {
	v.tree.Put(server, status)
}

// Get returns the status for a server and whether it was present.
func (v *View) Get(server tablet.ServerID) (tablet.ServerStatus, bool) {
	value, found := v.tree.Get(server)
	if !found {
		return tablet.ServerStatus{}, false
	}
	return value.(tablet.ServerStatus), true
}

// Size returns the number of servers in the view.
func (v *View) Size() int {
	if v == nil || v.tree == nil {
		return 0
	}
	return v.tree.Size()
}

// Empty reports whether the view has no servers.
func (v *View) Empty() bool {
	return v.Size() == 0
}

// Comparator returns the comparator this view was built with.
func (v *View) Comparator() tablet.Comparator {
	return v.cmp
}

// FirstKey returns the lowest server under this view's comparator. It
// panics if the view is empty; callers must check Empty first, exactly as
// the balancer's OOB scanner does before selecting a migration target.
func (v *View) FirstKey() tablet.ServerID {
	key, _ := v.tree.Min()
	return key.(tablet.ServerID)
}

// Servers returns every server in the view, in comparator order.
func (v *View) Servers() []tablet.ServerID {
	keys := v.tree.Keys()
	servers := make([]tablet.ServerID, len(keys))
	for i, k := range keys {
		servers[i] = k.(tablet.ServerID)
	}
	return servers
}

// Each calls fn for every (server, status) pair in comparator order.
func (v *View) Each(fn func(server tablet.ServerID, status tablet.ServerStatus)) {
	it := v.tree.Iterator()
	for it.Next() {
		fn(it.Key().(tablet.ServerID), it.Value().(tablet.ServerStatus))
	}
}
