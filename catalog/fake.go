package catalog

import (
	"context"
	"sync"

	"github.com/upcloud/accumulo/tablet"
)

var _ Catalog = (*FakeCatalog)(nil)

// FakeCatalog is an in-memory Catalog used by tests and by callers that
// have not wired in a real table-metadata service.
type FakeCatalog struct {
	mu         sync.RWMutex
	tableIDs   map[tablet.TableName]tablet.TableID
	properties map[tablet.TableName]map[string]string
}

// NewFakeCatalog creates an empty FakeCatalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		tableIDs:   map[tablet.TableName]tablet.TableID{},
		properties: map[tablet.TableName]map[string]string{},
	}
}

// AddTable registers a table and, optionally, its custom properties.
func (c *FakeCatalog) AddTable(name tablet.TableName, id tablet.TableID, properties map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tableIDs[name] = id

	if properties != nil {
		c.properties[name] = properties
	}
}

// RemoveTable simulates a table being dropped or renamed out from under
// the balancer, exercising the "missing table" error path.
func (c *FakeCatalog) RemoveTable(name tablet.TableName) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tableIDs, name)
	delete(c.properties, name)
}

// TableIDMap implements Catalog.
func (c *FakeCatalog) TableIDMap(ctx context.Context) (map[tablet.TableName]tablet.TableID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[tablet.TableName]tablet.TableID, len(c.tableIDs))
	for name, id := range c.tableIDs {
		out[name] = id
	}

	return out, nil
}

// TableProperties implements Catalog.
func (c *FakeCatalog) TableProperties(ctx context.Context, table tablet.TableName, prefix string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := map[string]string{}
	for key, value := range c.properties[table] {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out[key] = value
		}
	}

	return out, nil
}
