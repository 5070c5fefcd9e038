package rpc

import "github.com/upcloud/accumulo/tablet"

// tabletStatsRequest and tabletStatsResponse are the wire messages for
// the TabletStats RPC. They are marshaled with the codec registered in
// codec.go rather than with generated protobuf bindings: the balancer's
// per-server RPC surface is a single narrow call, and a generated
// protobuf stack would be pure ceremony for it.
type tabletStatsRequest struct {
	ServerHost string `json:"server_host"`
	ServerPort int    `json:"server_port"`
	TableID    string `json:"table_id"`
}

type tabletStatsResponse struct {
	Stats []tablet.Stat `json:"stats"`
}
