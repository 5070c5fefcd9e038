// Package rpc is the per-server transport the OOB scanner uses to ask a
// live tablet server which tablets of a given table it currently hosts.
// It is a narrow client interface plus a small gRPC service that backs
// it; the balancer core imposes no timeouts of its own, so every call
// here takes a context and the caller is expected to attach a deadline.
package rpc

import (
	"context"

	"github.com/upcloud/accumulo/tablet"
)

// Client is the per-server RPC interface the OOB scanner depends on.
type Client interface {
	// OnlineTabletsForTable returns the tablets of table that server is
	// currently hosting online. A transport error here is logged by the
	// caller and does not abort the wider OOB scan.
	OnlineTabletsForTable(ctx context.Context, server tablet.ServerID, table tablet.TableID) ([]tablet.Stat, error)
}
