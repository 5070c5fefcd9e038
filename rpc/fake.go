package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/upcloud/accumulo/tablet"
)

var _ Client = (*FakeClient)(nil)

// FakeClient is an in-memory Client used by tests. It never touches the
// network.
type FakeClient struct {
	mu      sync.Mutex
	tablets map[tablet.ServerID]map[tablet.TableID][]tablet.Stat
	failing map[tablet.ServerID]bool
}

// NewFakeClient creates an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		tablets: map[tablet.ServerID]map[tablet.TableID][]tablet.Stat{},
		failing: map[tablet.ServerID]bool{},
	}
}

// Host puts the list of online tablets server reports for table.
func (c *FakeClient) Host(server tablet.ServerID, table tablet.TableID, stats ...tablet.Stat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byTable, ok := c.tablets[server]
	if !ok {
		byTable = map[tablet.TableID][]tablet.Stat{}
		c.tablets[server] = byTable
	}

	byTable[table] = append(byTable[table], stats...)
}

// FailFor makes every call against server return a transport error,
// simulating a tablet server that is unreachable during an OOB scan.
func (c *FakeClient) FailFor(server tablet.ServerID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failing[server] = true
}

// OnlineTabletsForTable implements Client.
func (c *FakeClient) OnlineTabletsForTable(ctx context.Context, server tablet.ServerID, table tablet.TableID) ([]tablet.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failing[server] {
		return nil, fmt.Errorf("simulated transport error talking to %s:%d", server.Host, server.Port)
	}

	return c.tablets[server][table], nil
}
