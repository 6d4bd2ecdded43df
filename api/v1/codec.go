// Package v1 is the gRPC contract between lvctl and the lvhelperd daemon.
//
// Requests and responses are plain Go structs encoded with BSON, the same
// encoding the LabVIEW listener speaks. Fields and replies that have a
// protobuf well-known type (durations, empty replies) use it.
package v1

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype used by every HelperService call.
const CodecName = "bson"

// Codec implements encoding.Codec. Protobuf messages, such as emptypb.Empty,
// are encoded as protobuf and everything else as a BSON document.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	if err := bson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(Codec{})
}

// CallOption selects the BSON codec for a client call.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
