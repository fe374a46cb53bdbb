package twerr

import "encoding/json"

// wireError is the JSON shape written on non-2xx responses.
// Meta has no omitempty on purpose: the body always carries "meta", even when
// it is an empty object.
type wireError struct {
	Code string            `json:"code"`
	Msg  string            `json:"msg"`
	Meta map[string]string `json:"meta"`
}

// MarshalJSON encodes the error in its wire form.
func (e *Error) MarshalJSON() ([]byte, error) {
	w := wireError{
		Code: string(e.code),
		Msg:  e.msg,
		Meta: e.meta,
	}
	if w.Meta == nil {
		w.Meta = map[string]string{}
	}
	return json.Marshal(w)
}

// WireJSON returns the wire-form body for an error response. Marshaling a
// flat three-field struct cannot fail, so the signature stays simple.
func WireJSON(e *Error) []byte {
	data, err := e.MarshalJSON()
	if err != nil {
		// Unreachable for the wire shape; keep a valid body anyway.
		return []byte(`{"code":"internal","msg":"failed to encode error","meta":{}}`)
	}
	return data
}

// ParseJSON decodes a wire-form error body. It reports ok=false when the body
// is not a Twirp error at all (invalid JSON or missing code) so the caller
// can synthesize an intermediary error. A body with a syntactically valid but
// unrecognized code decodes to Unknown, preserving the message and meta.
func ParseJSON(body []byte) (*Error, bool) {
	var w wireError
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, false
	}
	if w.Code == "" {
		return nil, false
	}
	code := Code(w.Code)
	if !code.Valid() {
		code = Unknown
	}
	return &Error{code: code, msg: w.Msg, meta: w.Meta}, true
}
