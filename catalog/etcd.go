package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/etcd/clientv3"

	"github.com/upcloud/accumulo/tablet"
)

var _ Catalog = (*EtcdCatalog)(nil)

const (
	tablesPrefix = "/tables/"
	propsSegment = "/props/"
)

// EtcdCatalog is the Catalog implementation this cluster actually runs:
// table ids live under /tables/<name> and each table's custom properties
// live under /tables/<name>/props/<key>, following the same key-per-entry
// convention the rest of the master's coordination state uses.
type EtcdCatalog struct {
	client *clientv3.Client
}

// NewEtcdCatalog wraps an already-connected etcd client. The caller owns
// the client's lifecycle (including Close).
func NewEtcdCatalog(client *clientv3.Client) *EtcdCatalog {
	return &EtcdCatalog{client: client}
}

// TableIDMap implements Catalog by listing every key directly under
// /tables/ whose value is the table's id.
func (c *EtcdCatalog) TableIDMap(ctx context.Context) (map[tablet.TableName]tablet.TableID, error) {
	resp, err := c.client.Get(ctx, tablesPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("could not list table catalog: %w", err)
	}

	out := map[tablet.TableName]tablet.TableID{}
	for _, kv := range resp.Kvs {
		key := strings.TrimPrefix(string(kv.Key), tablesPrefix)

		// Skip property keys; this listing is only for the top-level
		// name -> id mapping.
		if strings.Contains(key, "/") {
			continue
		}

		out[tablet.TableName(key)] = tablet.TableID(kv.Value)
	}

	return out, nil
}

// TableProperties implements Catalog by listing every key under
// /tables/<table>/props/ whose key (after stripping that prefix) starts
// with prefix.
func (c *EtcdCatalog) TableProperties(ctx context.Context, table tablet.TableName, prefix string) (map[string]string, error) {
	base := tablesPrefix + string(table) + propsSegment

	resp, err := c.client.Get(ctx, base, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("could not list properties for table %s: %w", table, err)
	}

	out := map[string]string{}
	for _, kv := range resp.Kvs {
		key := strings.TrimPrefix(string(kv.Key), base)

		if strings.HasPrefix(key, prefix) {
			out[key] = string(kv.Value)
		}
	}

	return out, nil
}
