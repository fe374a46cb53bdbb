package message

import (
	"testing"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestProtoRoundTripBinary(t *testing.T) {
	original := Proto(wrapperspb.String("hello twirp"))

	data, err := original.MarshalFormat(Binary)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	decoded := Proto(&wrapperspb.StringValue{})
	if err := decoded.UnmarshalFormat(Binary, data, DecodeOptions{}); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got := decoded.PB.(*wrapperspb.StringValue).Value; got != "hello twirp" {
		t.Fatalf("expect 'hello twirp', got %q", got)
	}
}

func TestProtoRoundTripJSON(t *testing.T) {
	pb, err := structpb.NewStruct(map[string]any{"a": 1.0, "b": "two"})
	if err != nil {
		t.Fatal(err)
	}
	original := Proto(pb)

	data, err := original.MarshalFormat(JSON)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	decoded := Proto(&structpb.Struct{})
	if err := decoded.UnmarshalFormat(JSON, data, DecodeOptions{}); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	fields := decoded.PB.(*structpb.Struct).Fields
	if fields["a"].GetNumberValue() != 1.0 || fields["b"].GetStringValue() != "two" {
		t.Fatalf("round trip lost fields: %v", fields)
	}
}

func TestProtoUnknownFieldStrictness(t *testing.T) {
	// Empty has no fields, so any field in the JSON is unknown.
	body := []byte(`{"surprise": 1}`)

	permissive := Proto(&emptypb.Empty{})
	if err := permissive.UnmarshalFormat(JSON, body, DecodeOptions{}); err != nil {
		t.Fatalf("permissive decode should ignore unknown fields, got %v", err)
	}

	strict := Proto(&emptypb.Empty{})
	err := strict.UnmarshalFormat(JSON, body, DecodeOptions{DisallowUnknownFields: true})
	if err == nil {
		t.Fatal("strict decode should reject unknown fields")
	}
}

func TestProtoMalformedBytes(t *testing.T) {
	m := Proto(&wrapperspb.StringValue{})
	if err := m.UnmarshalFormat(JSON, []byte(`{invalid json`), DecodeOptions{}); err == nil {
		t.Fatal("expect error on malformed JSON")
	}
}
