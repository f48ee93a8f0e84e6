package transformpb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName identifies the wire codec used by the Transform service. The
// engine has no protobuf toolchain available to it, so rather than hand-
// maintain protobuf descriptor bytes it forces a JSON codec for every RPC
// on this service, registered once via init and selected explicitly by
// both client and server (grpc.ForceServerCodec / grpc.ForceCodec) so the
// choice can't silently fall back to grpc-go's default "proto" codec.
const codecName = "transformpb-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Codec returns the encoding.Codec used to (de)serialize every message on
// the Transform service.
func Codec() encoding.Codec { return jsonCodec{} }

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }
