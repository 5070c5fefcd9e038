package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/upcloud/accumulo/tablet"
)

const (
	serviceName       = "accumulo.balancer.TabletServer"
	tabletStatsMethod = "/" + serviceName + "/TabletStats"
)

// server is implemented by a tablet server that wants to answer
// TabletStats queries over gRPC.
type server interface {
	TabletStats(ctx context.Context, req *tabletStatsRequest) (*tabletStatsResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "TabletStats",
			Handler:    tabletStatsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accumulo/balancer/rpc.proto",
}

func tabletStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(tabletStatsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(server).TabletStats(ctx, req)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: tabletStatsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(server).TabletStats(ctx, req.(*tabletStatsRequest))
	}

	return interceptor(ctx, req, info, handler)
}

// Server implements the TabletStats RPC by delegating to a local lookup
// of online tablets for a table. Tablet servers in this cluster register
// one of these against their own gRPC server.
type Server struct {
	// OnlineTablets returns the tablets of table this server currently
	// hosts online. It is supplied by the tablet server process; this
	// package only carries the RPC plumbing around it.
	OnlineTablets func(table tablet.TableID) ([]tablet.Stat, error)
}

// Register attaches the TabletStats service to s.
func Register(s *grpc.Server, impl *Server) {
	s.RegisterService(&serviceDesc, impl)
}

// TabletStats implements the server interface.
func (s *Server) TabletStats(ctx context.Context, req *tabletStatsRequest) (*tabletStatsResponse, error) {
	stats, err := s.OnlineTablets(tablet.TableID(req.TableID))
	if err != nil {
		return nil, fmt.Errorf("could not list online tablets for table %s: %w", req.TableID, err)
	}

	return &tabletStatsResponse{Stats: stats}, nil
}

var _ server = (*Server)(nil)
