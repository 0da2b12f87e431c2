package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets this gRPC service carry plain Go structs instead of
// protobuf-generated messages: a demo server has no wire-compatibility
// contract to keep, so JSON keeps the message types readable.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

// CodecName is the gRPC content-subtype clients must request via
// grpc.CallContentSubtype to talk to this service.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
