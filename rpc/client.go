package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/upcloud/accumulo/tablet"
)

var _ Client = (*GRPCClient)(nil)

// GRPCClient is the Client implementation tablet servers in this cluster
// actually speak: a single unary RPC over a caller-supplied
// *grpc.ClientConn.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient wraps an already-dialed connection to one tablet server.
// The caller owns the connection's lifecycle.
func NewGRPCClient(conn *grpc.ClientConn) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// OnlineTabletsForTable implements Client.
func (c *GRPCClient) OnlineTabletsForTable(ctx context.Context, serverID tablet.ServerID, table tablet.TableID) ([]tablet.Stat, error) {
	req := &tabletStatsRequest{
		ServerHost: serverID.Host,
		ServerPort: serverID.Port,
		TableID:    string(table),
	}
	resp := new(tabletStatsResponse)

	err := c.conn.Invoke(ctx, tabletStatsMethod, req, resp, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, fmt.Errorf("tablet stats RPC to %s:%d failed: %w", serverID.Host, serverID.Port, err)
	}

	return resp.Stats, nil
}
