package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's encoding package and selected per
// call via grpc.CallContentSubtype. It lets this package speak gRPC
// without depending on protoc-generated message types.
const codecName = "accumulo-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
