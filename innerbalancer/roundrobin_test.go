package innerbalancer_test

import (
	"context"
	"testing"

	"github.com/upcloud/accumulo/innerbalancer"
	"github.com/upcloud/accumulo/pool"
	"github.com/upcloud/accumulo/tablet"
)

func viewOf(hosts ...string) *pool.View {
	v := pool.NewView(tablet.CompareServerIDs)
	for _, h := range hosts {
		v.Put(tablet.ServerID{Host: h, Port: 9997}, tablet.ServerStatus{})
	}
	return v
}

func TestRoundRobinAssignsDeterministically(t *testing.T) {
	view := viewOf("host1", "host2", "host3")
	unassigned := map[tablet.Extent]tablet.ServerID{
		{TableID: "t", StartRow: "a"}: {},
		{TableID: "t", StartRow: "b"}: {},
		{TableID: "t", StartRow: "c"}: {},
		{TableID: "t", StartRow: "d"}: {},
	}

	rr := &innerbalancer.RoundRobin{}

	first := map[tablet.Extent]tablet.ServerID{}
	if err := rr.GetAssignments(context.Background(), view, unassigned, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := map[tablet.Extent]tablet.ServerID{}
	if err := rr.GetAssignments(context.Background(), view, unassigned, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for extent, server := range first {
		if second[extent] != server {
			t.Fatalf("expected repeated calls to agree on %#v, got %v then %v", extent, server, second[extent])
		}
	}

	// Four extents over three servers must wrap around, so some server
	// is used twice.
	counts := map[tablet.ServerID]int{}
	for _, server := range first {
		counts[server]++
	}

	var sawRepeat bool
	for _, count := range counts {
		if count > 1 {
			sawRepeat = true
		}
	}

	if !sawRepeat {
		t.Fatalf("expected round-robin to wrap around with 4 extents and 3 servers, got %v", first)
	}
}

func TestRoundRobinBalanceNeverProposesMigrations(t *testing.T) {
	rr := &innerbalancer.RoundRobin{DelayMs: 1234}
	view := viewOf("host1")

	delay, migrations, err := rr.Balance(context.Background(), view, map[tablet.Extent]struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if delay != 1234 {
		t.Fatalf("expected configured delay to be returned, got %d", delay)
	}

	if len(migrations) != 0 {
		t.Fatalf("expected RoundRobin to never propose migrations, got %#v", migrations)
	}
}

func TestStaticRegistryPrefersTableOverride(t *testing.T) {
	reg := innerbalancer.NewStaticRegistry()
	override := &innerbalancer.RoundRobin{DelayMs: 42}
	reg.SetBalancer("table-a-id", override)

	if reg.BalancerForTable("table-a-id") != innerbalancer.Balancer(override) {
		t.Fatalf("expected override to be returned for table-a-id")
	}

	if reg.BalancerForTable("table-b-id") == innerbalancer.Balancer(override) {
		t.Fatalf("expected the default balancer for tables with no override")
	}
}
