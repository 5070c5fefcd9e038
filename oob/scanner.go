// Package oob implements the out-of-bounds scan: it finds tablets that
// are hosted on a server outside their table's pool and proposes a
// migration back into the pool. It is invoked from inside Balance at
// most once per oob-period.
package oob

import (
	"context"

	"go.uber.org/zap"

	"github.com/upcloud/accumulo/catalog"
	"github.com/upcloud/accumulo/pool"
	"github.com/upcloud/accumulo/rpc"
	"github.com/upcloud/accumulo/tablet"
)

// Scanner walks the live fleet looking for out-of-bounds tablets.
type Scanner struct {
	catalog catalog.Catalog
	client  rpc.Client
	grouper *pool.Grouper
	logger  *zap.Logger
}

// New creates a Scanner.
func New(cat catalog.Catalog, client rpc.Client, grouper *pool.Grouper, logger *zap.Logger) *Scanner {
	return &Scanner{catalog: cat, client: client, grouper: grouper, logger: logger}
}

// Scan performs one full sweep of current against pools, skipping any
// extent already present in migrations. It never returns an error for a
// single server or table failing; those are logged and the scan
// continues. It does return an error if the catalog itself cannot be
// listed, since without it the scan cannot know which tables have
// regexes.
func (s *Scanner) Scan(ctx context.Context, current *pool.View, pools map[tablet.PoolName]*pool.View, migrations map[tablet.Extent]struct{}) ([]tablet.Migration, error) {
	tableIDs, err := s.catalog.TableIDMap(ctx)
	if err != nil {
		return nil, err
	}

	var proposals []tablet.Migration

	current.Each(func(server tablet.ServerID, _ tablet.ServerStatus) {
		assignedPools, err := s.grouper.PoolsForHost(ctx, server.Host)
		if err != nil {
			s.logger.Error("unable to determine assigned pools for server", zap.String("host", server.Host), zap.Error(err))
			return
		}

		assigned := make(map[tablet.PoolName]bool, len(assignedPools))
		for _, p := range assignedPools {
			assigned[p] = true
		}

		for _, table := range s.grouper.ConfiguredPools() {
			if assigned[table] {
				// This server legitimately hosts this table's tablets.
				continue
			}

			tableID, ok := tableIDs[tablet.TableName(table)]
			if !ok {
				s.logger.Warn("unable to check for out of bounds tablets, table may have been deleted or renamed", zap.String("table", string(table)))
				continue
			}

			stats, err := s.client.OnlineTabletsForTable(ctx, server, tableID)
			if err != nil {
				s.logger.Error("error in OOB check getting tablets for table from server",
					zap.String("table_id", string(tableID)), zap.String("host", server.Host), zap.Error(err))
				continue
			}

			targetPool := pools[table]

			for _, stat := range stats {
				if _, inFlight := migrations[stat.Extent]; inFlight {
					s.logger.Debug("migration for out of bounds tablet has already been requested", zap.Any("extent", stat.Extent))
					continue
				}

				if targetPool == nil || targetPool.Empty() {
					s.logger.Warn("no tablet servers online for pool, unable to migrate out of bounds tablets", zap.String("pool", string(table)))
					continue
				}

				destination := targetPool.FirstKey()
				s.logger.Info("tablet is currently outside the bounds of the regex, migrating",
					zap.Any("extent", stat.Extent), zap.String("from", server.Host), zap.String("to", destination.Host))

				proposals = append(proposals, tablet.Migration{
					Extent: stat.Extent,
					From:   server,
					To:     destination,
				})
			}
		}
	})

	return proposals, nil
}
