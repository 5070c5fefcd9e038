// Package catalog supplies the balancer with the table-metadata it needs
// but does not own: the tableId/tableName mapping and each table's custom
// properties. The balancer treats the catalog purely as an external
// collaborator; failure to reach it at Init is fatal. Afterward, Balance
// logs a failure to list tables and skips that tick, while GetAssignments
// returns the error to its caller.
package catalog

import (
	"context"

	"github.com/upcloud/accumulo/tablet"
)

// Catalog is the table-metadata service the balancer depends on.
type Catalog interface {
	// TableIDMap returns every table known to the cluster, keyed by name.
	TableIDMap(ctx context.Context) (map[tablet.TableName]tablet.TableID, error)

	// TableProperties returns every custom property configured for table
	// whose key starts with prefix, keyed by the unmodified property
	// name (not stripped of prefix).
	TableProperties(ctx context.Context, table tablet.TableName, prefix string) (map[string]string, error)
}
