// Package tablet defines the data types shared by every layer of the
// host-regex load balancer: the identity of a tablet server, the identity
// of a tablet, and the migration proposals the balancer emits. None of
// these types are owned or persisted by the balancer; they are supplied
// by the master on every tick and handed back, possibly transformed.
package tablet

// PoolName identifies a server pool. It equals a TableName when that
// table has a configured regex; otherwise it is DefaultPool.
type PoolName string

// DefaultPool is the reserved pool name used for any server that does not
// match a configured regex. It is chosen to be unlikely to collide with
// a real table name.
const DefaultPool PoolName = "HostTableLoadBalancer.ALL"

// ServerID is the identity of one tablet server. Host is the value that
// gets matched against pool regexes (after name resolution, unless the
// balancer is configured for IP-based matching). Port and the opaque Tag
// round out the identity the master uses to address the server; Tag lets
// a caller carry its own instance-generation marker (e.g. a session id)
// through the balancer without the balancer needing to know its shape.
type ServerID struct {
	Host string
	Port int
	Tag  string
}

// Comparator orders two ServerIDs. It must agree with the comparator used
// to build the pool.View handed to the balancer so that every pool's
// sub-view preserves the caller's ordering.
type Comparator func(a, b ServerID) int

// CompareServerIDs is the comparator used when the caller has no particular
// ordering of its own: lexicographic by host, then port, then tag.
func CompareServerIDs(a, b ServerID) int {
	if a.Host != b.Host {
		if a.Host < b.Host {
			return -1
		}
		return 1
	}

	if a.Port != b.Port {
		if a.Port < b.Port {
			return -1
		}
		return 1
	}

	if a.Tag != b.Tag {
		if a.Tag < b.Tag {
			return -1
		}
		return 1
	}

	return 0
}

// ServerStatus is a liveness/load snapshot of one ServerID. The balancer
// never inspects its fields; it only ever moves the struct around. Real
// masters will embed things like LastContact and TabletCount here.
type ServerStatus struct {
	LastContactMillis int64
	TabletCount       int
	HoldTimeMillis    int64
}

// TableID is the stable identifier of a table, as opposed to its
// human-assigned, renameable TableName.
type TableID string

// TableName is the user-facing name of a table.
type TableName string

// Extent identifies one tablet: a table plus a key range. EndRow empty
// means the range is unbounded on the right.
type Extent struct {
	TableID  TableID
	StartRow string
	EndRow   string
}

// Stat is the per-tablet status the per-server RPC client reports for a
// single online tablet.
type Stat struct {
	Extent      Extent
	NumEntries  int64
	LastContact int64
}

// Migration is a proposed move of one tablet from one server to another.
// The balancer never applies a Migration; it only ever proposes one for
// an external orchestrator to carry out.
type Migration struct {
	Extent Extent
	From   ServerID
	To     ServerID
}
