package balancer_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/upcloud/accumulo/balancer"
	"github.com/upcloud/accumulo/catalog"
	"github.com/upcloud/accumulo/config"
	"github.com/upcloud/accumulo/innerbalancer"
	"github.com/upcloud/accumulo/pool"
	"github.com/upcloud/accumulo/rpc"
	"github.com/upcloud/accumulo/tablet"
)

func newBalancer(t *testing.T, regexes map[string]string) (*balancer.HostRegexBalancer, *catalog.FakeCatalog, *rpc.FakeClient) {
	t.Helper()

	cat := catalog.NewFakeCatalog()
	cat.AddTable("tableA", "table-a-id", nil)
	cat.AddTable("tableB", "table-b-id", nil)

	client := rpc.NewFakeClient()
	registry := innerbalancer.NewStaticRegistry()
	b := balancer.New(cat, registry, client, zap.NewNop())

	props := map[string]string{}
	for table, regex := range regexes {
		props["balancer.host.regex."+table] = regex
	}
	props["balancer.host.regex.pool.check"] = "1h"
	// Zero the OOB period so every Balance call in these tests runs a
	// fresh scan rather than waiting out a real-world interval.
	props["balancer.host.regex.oob.period"] = "0s"
	// Match regexes against the raw host strings; none of the hosts in
	// these tests exist in DNS.
	props["balancer.host.regex.is.ip"] = "true"

	cfg, err := config.Load(props)
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}

	if err := b.Init(context.Background(), cfg); err != nil {
		t.Fatalf("could not init balancer: %v", err)
	}

	return b, cat, client
}

func currentView(hosts ...string) *pool.View {
	view := pool.NewView(tablet.CompareServerIDs)
	for _, h := range hosts {
		view.Put(tablet.ServerID{Host: h, Port: 9997}, tablet.ServerStatus{})
	}
	return view
}

func TestGetAssignmentsDelegatesWithinPool(t *testing.T) {
	b, _, _ := newBalancer(t, map[string]string{
		"tableA": `.*-a\..*`,
		"tableB": `.*-b\..*`,
	})

	current := currentView("host1-a.x", "host2-a.x", "host3-b.x")

	unassigned := map[tablet.Extent]tablet.ServerID{
		{TableID: "table-a-id", StartRow: "m"}: {},
	}
	assignments := map[tablet.Extent]tablet.ServerID{}

	if err := b.GetAssignments(context.Background(), current, unassigned, assignments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	extent := tablet.Extent{TableID: "table-a-id", StartRow: "m"}
	target, ok := assignments[extent]
	if !ok {
		t.Fatalf("expected an assignment for %#v", extent)
	}

	if target.Host != "host1-a.x" && target.Host != "host2-a.x" {
		t.Fatalf("expected assignment target to be drawn from tableA's pool, got %s", target.Host)
	}
}

func TestGetAssignmentsFallsBackToDefaultPool(t *testing.T) {
	b, _, _ := newBalancer(t, map[string]string{"tableA": `.*-a\..*`})

	// No server matches tableA's regex at all; the whole fleet lands in
	// the default pool and that's where assignment must fall back to.
	current := currentView("host1-c.x")

	unassigned := map[tablet.Extent]tablet.ServerID{
		{TableID: "table-a-id", StartRow: "m"}: {},
	}
	assignments := map[tablet.Extent]tablet.ServerID{}

	if err := b.GetAssignments(context.Background(), current, unassigned, assignments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	extent := tablet.Extent{TableID: "table-a-id", StartRow: "m"}
	target, ok := assignments[extent]
	if !ok {
		t.Fatalf("expected a fallback assignment for %#v", extent)
	}

	if target.Host != "host1-c.x" {
		t.Fatalf("expected fallback assignment to come from the default pool, got %s", target.Host)
	}
}

func TestInitReadsRegexFromTableProperties(t *testing.T) {
	cat := catalog.NewFakeCatalog()
	cat.AddTable("tableA", "table-a-id", map[string]string{
		"balancer.host.regex.tableA": `.*-a\..*`,
	})

	client := rpc.NewFakeClient()
	b := balancer.New(cat, innerbalancer.NewStaticRegistry(), client, zap.NewNop())

	// No regexes in the master config at all; the only source for
	// tableA's pool is its custom table property.
	cfg, err := config.Load(map[string]string{
		"balancer.host.regex.is.ip": "true",
	})
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}

	if err := b.Init(context.Background(), cfg); err != nil {
		t.Fatalf("could not init balancer: %v", err)
	}

	current := currentView("host1-a.x", "host4-c.x")

	unassigned := map[tablet.Extent]tablet.ServerID{
		{TableID: "table-a-id", StartRow: "m"}: {},
	}
	assignments := map[tablet.Extent]tablet.ServerID{}

	if err := b.GetAssignments(context.Background(), current, unassigned, assignments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target, ok := assignments[tablet.Extent{TableID: "table-a-id", StartRow: "m"}]
	if !ok {
		t.Fatalf("expected an assignment for tableA's tablet")
	}

	if target.Host != "host1-a.x" {
		t.Fatalf("expected property-sourced regex to restrict assignment to host1-a.x, got %s", target.Host)
	}
}

func TestBalanceBackpressureWithInFlightMigrations(t *testing.T) {
	b, _, _ := newBalancer(t, map[string]string{"tableA": `.*-a\..*`})

	current := currentView("host1-a.x")
	migrations := map[tablet.Extent]struct{}{
		{TableID: "table-a-id", StartRow: "m"}: {},
	}

	var out []tablet.Migration
	delay, err := b.Balance(context.Background(), current, migrations, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if delay != 5000 {
		t.Fatalf("expected floor delay of 5000ms when migrations are in flight, got %d", delay)
	}
}

func TestBalanceIdempotentWithNoChanges(t *testing.T) {
	b, _, _ := newBalancer(t, map[string]string{"tableA": `.*-a\..*`})

	current := currentView("host1-a.x", "host2-a.x")

	var firstOut, secondOut []tablet.Migration

	if _, err := b.Balance(context.Background(), current, map[tablet.Extent]struct{}{}, &firstOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := b.Balance(context.Background(), current, map[tablet.Extent]struct{}{}, &secondOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(firstOut) != len(secondOut) {
		t.Fatalf("expected idempotent proposals across ticks, got %d then %d", len(firstOut), len(secondOut))
	}
}

func TestBalanceThrottlesOOBScanWithinPeriod(t *testing.T) {
	cat := catalog.NewFakeCatalog()
	cat.AddTable("tableA", "table-a-id", nil)

	client := rpc.NewFakeClient()
	b := balancer.New(cat, innerbalancer.NewStaticRegistry(), client, zap.NewNop())

	cfg, err := config.Load(map[string]string{
		"balancer.host.regex.tableA":     `.*-a\..*`,
		"balancer.host.regex.oob.period": "1h",
		"balancer.host.regex.is.ip":      "true",
	})
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}

	if err := b.Init(context.Background(), cfg); err != nil {
		t.Fatalf("could not init balancer: %v", err)
	}

	current := currentView("host1-a.x", "host4-c.x")
	extent := tablet.Extent{TableID: "table-a-id", StartRow: "m"}
	client.Host(tablet.ServerID{Host: "host4-c.x", Port: 9997}, "table-a-id", tablet.Stat{Extent: extent})

	// Init stamps the OOB timestamp, so with an hour-long period the
	// out-of-bounds tablet must go unnoticed on this tick.
	var out []tablet.Migration
	if _, err := b.Balance(context.Background(), current, map[tablet.Extent]struct{}{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out) != 0 {
		t.Fatalf("expected no OOB scan within the period, got %#v", out)
	}
}

func TestBalanceRunsOOBScanAndMigratesOutOfBoundsTablet(t *testing.T) {
	b, _, client := newBalancer(t, map[string]string{"tableA": `.*-a\..*`})

	current := currentView("host1-a.x", "host4-c.x")
	extent := tablet.Extent{TableID: "table-a-id", StartRow: "m"}
	client.Host(tablet.ServerID{Host: "host4-c.x", Port: 9997}, "table-a-id", tablet.Stat{Extent: extent})

	var out []tablet.Migration
	if _, err := b.Balance(context.Background(), current, map[tablet.Extent]struct{}{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var found bool
	for _, m := range out {
		if m.Extent == extent && m.From.Host == "host4-c.x" && m.To.Host == "host1-a.x" {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected an OOB migration from host4-c.x to host1-a.x, got %#v", out)
	}
}
