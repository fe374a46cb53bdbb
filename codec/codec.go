// Package codec selects the wire encoding from the Content-Type header and
// runs message (de)serialization, normalizing every failure to a structured
// twerr value so no raw encoding error escapes to a caller.
package codec

import (
	"mime"
	"strings"

	"mini-twirp/message"
	"mini-twirp/twerr"
)

// Content types the protocol negotiates. Anything else is a routing-time
// error handled by the caller, not a codec error.
const (
	ContentTypeProtobuf = "application/protobuf"
	ContentTypeJSON     = "application/json"
)

// FromContentType maps a Content-Type header value to a Format.
// Media-type parameters ("application/json; charset=utf-8") are tolerated.
func FromContentType(contentType string) (message.Format, bool) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case ContentTypeProtobuf:
		return message.Binary, true
	case ContentTypeJSON:
		return message.JSON, true
	default:
		return 0, false
	}
}

// ContentType returns the header value for a format.
func ContentType(f message.Format) string {
	if f == message.JSON {
		return ContentTypeJSON
	}
	return ContentTypeProtobuf
}

// Encode serializes a message. Encoding a well-typed message is assumed
// infallible; a failure here means the message value violates its own schema,
// which surfaces as internal.
func Encode(m message.Message, f message.Format) ([]byte, *twerr.Error) {
	data, err := m.MarshalFormat(f)
	if err != nil {
		return nil, twerr.Internalf("failed to encode %s response: %v", f, err)
	}
	return data, nil
}

// Decode deserializes data into m. Every failure — malformed bytes, type
// mismatch, unknown fields in strict mode — is reported as malformed.
func Decode(data []byte, m message.Message, f message.Format, opts message.DecodeOptions) *twerr.Error {
	if err := m.UnmarshalFormat(f, data, opts); err != nil {
		return twerr.Malformedf("failed to decode %s body: %v", f, err)
	}
	return nil
}
