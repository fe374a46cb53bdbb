package message

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ProtoAdapter wraps a proto-generated message so it satisfies Message.
// Binary is proto wire format, JSON is protojson.
type ProtoAdapter struct {
	PB proto.Message
}

// Proto adapts a proto.Message to the Message interface.
func Proto(pb proto.Message) *ProtoAdapter {
	return &ProtoAdapter{PB: pb}
}

func (a *ProtoAdapter) MarshalFormat(f Format) ([]byte, error) {
	switch f {
	case Binary:
		return proto.Marshal(a.PB)
	case JSON:
		return protojson.Marshal(a.PB)
	default:
		return nil, fmt.Errorf("unsupported format %v", f)
	}
}

func (a *ProtoAdapter) UnmarshalFormat(f Format, data []byte, opts DecodeOptions) error {
	switch f {
	case Binary:
		// Unknown fields on the binary wire are retained by protobuf itself;
		// strictness is a JSON-only concern.
		return proto.Unmarshal(data, a.PB)
	case JSON:
		o := protojson.UnmarshalOptions{DiscardUnknown: !opts.DisallowUnknownFields}
		return o.Unmarshal(data, a.PB)
	default:
		return fmt.Errorf("unsupported format %v", f)
	}
}
