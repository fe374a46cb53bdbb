// Package message defines the capability interface the protocol engine uses
// to carry request and response payloads without inspecting them.
//
// Message types are produced by a schema codegen step outside this module.
// The engine only needs two capabilities — "encode to bytes given a format"
// and "decode from bytes given a format" — so that is the whole interface.
// Proto-generated types plug in through the Proto adapter.
package message

// Format selects the wire encoding of a message body.
type Format int

const (
	Binary Format = iota // protobuf binary
	JSON                 // protojson / encoding-json
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// DecodeOptions tunes decoding behavior. Strictness about unknown fields is
// deliberately a knob rather than a fixed policy: permissive decoding is the
// default, matching protobuf's wire-compatibility posture.
type DecodeOptions struct {
	// DisallowUnknownFields makes decoding fail when the payload carries
	// fields the message type does not declare.
	DisallowUnknownFields bool
}

// Message is the payload capability interface.
//
// Implementations mutate the receiver in place on unmarshal, so a fresh
// instance must be used per call (see the NewRequest/NewResponse factories
// on registry.MethodDefinition).
type Message interface {
	MarshalFormat(f Format) ([]byte, error)
	UnmarshalFormat(f Format, data []byte, opts DecodeOptions) error
}
