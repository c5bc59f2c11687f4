// Package rpc binds the ring's routing surface to a concrete gRPC
// transport: nine routing RPCs plus lookupWithSucc and an operator
// Describe call, carried as JSON rather than protobuf wire bytes.
//
// A generated protobuf client/server pair would be the usual way to
// expose this surface over grpc, but generating one requires the
// protoc toolchain and its protoc-gen-go / protoc-gen-go-grpc plugins,
// neither of which is available to produce reliably here. grpc itself
// does not require protobuf: encoding.Codec only needs Marshal,
// Unmarshal and a content-subtype name, so this package forces a
// plain JSON codec and defines the grpc.ServiceDesc and method
// handlers by hand, in the same shape protoc-gen-go-grpc would emit.
package rpc

import "encoding/json"

// jsonCodec implements google.golang.org/grpc's encoding.Codec using
// encoding/json, letting the RPC surface be plain Go structs instead
// of generated protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "json" }
