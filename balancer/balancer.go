// Package balancer wires together the config view, catalog adapter, name
// resolver, pool grouper, OOB scanner, and inner balancer registry into
// the two operations a master tick actually calls: GetAssignments and
// Balance.
package balancer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/upcloud/accumulo/catalog"
	"github.com/upcloud/accumulo/config"
	"github.com/upcloud/accumulo/innerbalancer"
	"github.com/upcloud/accumulo/oob"
	"github.com/upcloud/accumulo/pool"
	"github.com/upcloud/accumulo/resolve"
	"github.com/upcloud/accumulo/rpc"
	"github.com/upcloud/accumulo/tablet"
	"github.com/upcloud/accumulo/utils/log"
	"github.com/upcloud/accumulo/utils/uuid"
)

// floorDelayMs is the minimum next-tick delay Balance will ever return.
const floorDelayMs int64 = 5000

// HostRegexBalancer groups the tablet server fleet into regex-defined
// pools, pins each table to a pool, and delegates per-table balancing to
// an inner Balancer restricted to that pool.
type HostRegexBalancer struct {
	catalog  catalog.Catalog
	registry innerbalancer.Registry
	client   rpc.Client
	logger   *zap.Logger

	cfg       config.Config
	grouper   *pool.Grouper
	scanner   *oob.Scanner
	oobPeriod time.Duration

	lastOOBCheck int64 // unix nanos, atomic
}

// New constructs a HostRegexBalancer. Init must still be called before
// either GetAssignments or Balance.
func New(cat catalog.Catalog, registry innerbalancer.Registry, client rpc.Client, logger *zap.Logger) *HostRegexBalancer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HostRegexBalancer{
		catalog:  cat,
		registry: registry,
		client:   client,
		logger:   logger,
	}
}

// Init loads cfg and prepares the pool grouper and OOB scanner. It must
// be called exactly once, before any call to GetAssignments or Balance.
// Failure to reach the catalog here is fatal.
func (b *HostRegexBalancer) Init(ctx context.Context, cfg config.Config) error {
	tableIDs, err := b.catalog.TableIDMap(ctx)
	if err != nil {
		return err
	}

	regexes := make(map[string]string, len(cfg.Regexes()))
	for table, expr := range cfg.Regexes() {
		regexes[table] = expr
	}

	// A table's custom properties can also carry regex entries; they
	// take precedence over the master's own configuration, so operators
	// can pin a table to a pool without touching the master config.
	for name := range tableIDs {
		props, err := b.catalog.TableProperties(ctx, name, config.HostRegexPrefix)
		if err != nil {
			return fmt.Errorf("could not read properties for table %s: %w", name, err)
		}

		for table, expr := range config.TableRegexes(props) {
			regexes[table] = expr
		}
	}

	patterns, err := pool.CompilePatterns(regexes)
	if err != nil {
		return err
	}

	var resolver resolve.Resolver
	if cfg.IsIPBased() {
		resolver = resolve.NewIPResolver()
	} else {
		resolver = resolve.NewDNSResolver()
	}

	b.cfg = cfg
	b.oobPeriod = cfg.OOBPeriod()
	b.grouper = pool.New(patterns, resolver, cfg.PoolRecheckPeriod(), b.logger)
	b.scanner = oob.New(b.catalog, b.client, b.grouper, b.logger)
	atomic.StoreInt64(&b.lastOOBCheck, time.Now().UnixNano())

	return nil
}

// GetAssignments groups unassigned tablets by table, derives each
// table's pool, and delegates to that table's inner balancer for
// placement.
func (b *HostRegexBalancer) GetAssignments(ctx context.Context, current *pool.View, unassigned map[tablet.Extent]tablet.ServerID, assignments map[tablet.Extent]tablet.ServerID) error {
	logger, ctx := log.LoggerFromContext(ctx, b.logger)
	ctx = log.WithTickID(ctx, uuid.NewTickID())
	logger = log.WithContext(ctx, logger)

	pools, err := b.grouper.Group(ctx, current)
	if err != nil {
		logger.Error("pool grouping encountered errors", zap.Error(err))
	}

	grouped := groupByTable(unassigned)

	tableIDs, err := b.catalog.TableIDMap(ctx)
	if err != nil {
		return err
	}

	tableNames := invert(tableIDs)

	for tableID, tableUnassigned := range grouped {
		tableName := tableNames[tableID]
		poolName := b.grouper.PoolNameForTable(tableName)

		currentView := pools[poolName]
		if currentView == nil || currentView.Empty() {
			logger.Warn("no tablet servers online for table, assigning within default pool", zap.String("table", string(tableName)))
			currentView = pools[tablet.DefaultPool]
			if currentView == nil {
				logger.Error("no tablet servers exist in the default pool, unable to assign tablets for table", zap.String("table", string(tableName)))
				continue
			}
		}

		logger.Debug("sending tablets to balancer for assignment",
			zap.Int("count", len(tableUnassigned)), zap.String("table", string(tableName)))

		newAssignments := map[tablet.Extent]tablet.ServerID{}
		if err := b.registry.BalancerForTable(tableID).GetAssignments(ctx, currentView, tableUnassigned, newAssignments); err != nil {
			logger.Error("inner balancer failed to assign tablets", zap.String("table", string(tableName)), zap.Error(err))
			continue
		}

		for extent, server := range newAssignments {
			assignments[extent] = server
		}
	}

	return nil
}

// Balance runs the OOB scan if due, then, unless migrations are already
// in flight, delegates per-table balancing to each table's inner
// balancer.
func (b *HostRegexBalancer) Balance(ctx context.Context, current *pool.View, migrations map[tablet.Extent]struct{}, migrationsOut *[]tablet.Migration) (int64, error) {
	logger, ctx := log.LoggerFromContext(ctx, b.logger)
	ctx = log.WithTickID(ctx, uuid.NewTickID())
	logger = log.WithContext(ctx, logger)

	tableIDs, err := b.catalog.TableIDMap(ctx)
	if err != nil {
		logger.Error("table catalog unavailable, skipping this tick", zap.Error(err))
		return floorDelayMs, nil
	}

	pools, err := b.grouper.Group(ctx, current)
	if err != nil {
		logger.Error("pool grouping encountered errors", zap.Error(err))
	}

	last := atomic.LoadInt64(&b.lastOOBCheck)
	if time.Duration(time.Now().UnixNano()-last) > b.oobPeriod {
		proposals, err := b.scanner.Scan(ctx, current, pools, migrations)
		if err != nil {
			logger.Error("OOB scan failed", zap.Error(err))
		}
		*migrationsOut = append(*migrationsOut, proposals...)

		// Advance the timestamp unconditionally, even on error, so a
		// transient RPC storm cannot cause continuous full sweeps.
		atomic.StoreInt64(&b.lastOOBCheck, time.Now().UnixNano())
	}

	if len(migrations) > 0 {
		logger.Warn("not balancing tables due to outstanding migrations", zap.Int("count", len(migrations)))
		return floorDelayMs, nil
	}

	var minDelay int64 = -1

	tableNames := invert(tableIDs)
	for _, tableID := range tableIDs {
		tableName := tableNames[tableID]
		poolName := b.grouper.PoolNameForTable(tableName)

		currentView := pools[poolName]
		if currentView == nil {
			logger.Warn("skipping balance for table as no tablet servers are online",
				zap.String("table", string(tableName)), zap.Duration("recheck_period", b.cfg.PoolRecheckPeriod()))
			continue
		}

		delay, newMigrations, err := b.registry.BalancerForTable(tableID).Balance(ctx, currentView, migrations)
		if err != nil {
			logger.Error("inner balancer failed", zap.String("table", string(tableName)), zap.Error(err))
			continue
		}

		if minDelay == -1 || delay < minDelay {
			minDelay = delay
		}

		*migrationsOut = append(*migrationsOut, newMigrations...)
	}

	if minDelay < floorDelayMs {
		minDelay = floorDelayMs
	}

	return minDelay, nil
}

func groupByTable(unassigned map[tablet.Extent]tablet.ServerID) map[tablet.TableID]map[tablet.Extent]tablet.ServerID {
	grouped := map[tablet.TableID]map[tablet.Extent]tablet.ServerID{}

	for extent, lastKnown := range unassigned {
		byExtent, ok := grouped[extent.TableID]
		if !ok {
			byExtent = map[tablet.Extent]tablet.ServerID{}
			grouped[extent.TableID] = byExtent
		}
		byExtent[extent] = lastKnown
	}

	return grouped
}

func invert(tableIDs map[tablet.TableName]tablet.TableID) map[tablet.TableID]tablet.TableName {
	inverted := make(map[tablet.TableID]tablet.TableName, len(tableIDs))
	for name, id := range tableIDs {
		inverted[id] = name
	}
	return inverted
}
