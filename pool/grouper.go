package pool

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/upcloud/accumulo/resolve"
	"github.com/upcloud/accumulo/tablet"
)

// Grouper derives the current pool membership from a live server fleet,
// caching its result for a configurable period. Every call to Group,
// including one that only returns the cached grouping, runs under the
// Grouper's mutex, so rebuilds are serialized with each other and with
// cached reads. A cached grouping may be up to the recheck period stale.
type Grouper struct {
	resolver     resolve.Resolver
	patterns     map[tablet.PoolName]*regexp.Regexp
	recheckEvery time.Duration
	logger       *zap.Logger

	mu          sync.Mutex
	lastRecheck int64        // unix nanos, written under mu
	cached      atomic.Value // holds map[tablet.PoolName]*View
}

// New creates a Grouper. patterns maps a pool name (a table name) to its
// compiled regex; resolver supplies the matchable host string for a
// server (either a DNS resolver or the IP-passthrough resolver, depending
// on config.IsIPBased).
func New(patterns map[tablet.PoolName]*regexp.Regexp, resolver resolve.Resolver, recheckEvery time.Duration, logger *zap.Logger) *Grouper {
	g := &Grouper{
		resolver:     resolver,
		patterns:     patterns,
		recheckEvery: recheckEvery,
		logger:       logger,
	}
	g.cached.Store(map[tablet.PoolName]*View{})
	return g
}

// Group returns the current pool grouping, rebuilding it once at least
// the recheck period has elapsed since the last rebuild.
func (g *Grouper) Group(ctx context.Context, current *View) (map[tablet.PoolName]*View, error) {
	now := time.Now()

	g.mu.Lock()
	stale := time.Duration(now.UnixNano()-g.lastRecheck) >= g.recheckEvery
	if !stale {
		g.mu.Unlock()
		return g.cached.Load().(map[tablet.PoolName]*View), nil
	}
	defer g.mu.Unlock()

	g.logger.Debug("performing pool recheck - regrouping tablet servers based on regular expressions")

	fresh := map[tablet.PoolName]*View{}

	var rebuildErr error
	current.Each(func(server tablet.ServerID, status tablet.ServerStatus) {
		poolNames, err := g.poolsForHost(ctx, server.Host)
		if err != nil && rebuildErr == nil {
			rebuildErr = err
		}

		for _, poolName := range poolNames {
			view, ok := fresh[poolName]
			if !ok {
				view = NewView(current.Comparator())
				fresh[poolName] = view
			}
			view.Put(server, status)
		}
	})

	g.cached.Store(fresh)
	g.lastRecheck = now.UnixNano()

	return fresh, rebuildErr
}

// PoolsForHost returns the pool names the given host belongs to, applying
// the same resolution and fallback-to-default logic Group uses
// internally. It is exposed so the OOB scanner can ask the same question
// about a specific server without forcing a full regroup.
func (g *Grouper) PoolsForHost(ctx context.Context, host string) ([]tablet.PoolName, error) {
	return g.poolsForHost(ctx, host)
}

func (g *Grouper) poolsForHost(ctx context.Context, host string) ([]tablet.PoolName, error) {
	name, err := g.resolver.Resolve(ctx, host)
	if err != nil {
		g.logger.Error("unable to determine host name, setting to default pool", zap.String("host", host), zap.Error(err))
		return []tablet.PoolName{tablet.DefaultPool}, nil
	}

	var matches []tablet.PoolName
	for poolName, pattern := range g.patterns {
		if pattern.MatchString(name) {
			matches = append(matches, poolName)
		}
	}

	if len(matches) == 0 {
		matches = []tablet.PoolName{tablet.DefaultPool}
	}

	return matches, nil
}

// PoolNameForTable derives the pool tableName's tablets belong in using
// this Grouper's own configured patterns.
func (g *Grouper) PoolNameForTable(tableName tablet.TableName) tablet.PoolName {
	return PoolNameForTable(g.patterns, tableName)
}

// ConfiguredPools returns the name of every pool that has a configured
// regex, i.e. every pool other than the default. The OOB scanner walks
// this set for every live server.
func (g *Grouper) ConfiguredPools() []tablet.PoolName {
	names := make([]tablet.PoolName, 0, len(g.patterns))
	for name := range g.patterns {
		names = append(names, name)
	}
	return names
}

// PoolNameForTable derives the pool a table's tablets belong in: its own
// name if a regex is configured for it, otherwise the default pool.
func PoolNameForTable(patterns map[tablet.PoolName]*regexp.Regexp, tableName tablet.TableName) tablet.PoolName {
	if tableName == "" {
		return tablet.DefaultPool
	}

	poolName := tablet.PoolName(tableName)
	if _, ok := patterns[poolName]; ok {
		return poolName
	}

	return tablet.DefaultPool
}

// CompilePatterns compiles the table name -> regex strings from config
// into the pool name -> *regexp.Regexp map the Grouper needs.
func CompilePatterns(regexes map[string]string) (map[tablet.PoolName]*regexp.Regexp, error) {
	patterns := make(map[tablet.PoolName]*regexp.Regexp, len(regexes))

	for tableName, expr := range regexes {
		compiled, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regex for table %s: %w", tableName, err)
		}
		patterns[tablet.PoolName(tableName)] = compiled
	}

	return patterns, nil
}
