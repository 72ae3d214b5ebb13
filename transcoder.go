package subdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Item flags carry the value format in the top byte.
const (
	FlagFormatMask    uint32 = 0xFF << 24
	FlagFormatMsgpack uint32 = 1 << 24
	FlagFormatJSON    uint32 = 2 << 24
	FlagFormatBinary  uint32 = 3 << 24
	FlagFormatString  uint32 = 4 << 24
)

// Transcoder converts whole-document values to stored bytes and back.
// Implementations must be pure: no side effects, no shared mutable state.
type Transcoder interface {
	Encode(v any) (data []byte, flags uint32, err error)
	Decode(data []byte, flags uint32) (any, error)
}

// TranscoderFuncs adapts a pair of functions to Transcoder.
type TranscoderFuncs struct {
	EncodeFunc func(v any) ([]byte, uint32, error)
	DecodeFunc func(data []byte, flags uint32) (any, error)
}

func (t TranscoderFuncs) Encode(v any) ([]byte, uint32, error) { return t.EncodeFunc(v) }

func (t TranscoderFuncs) Decode(data []byte, flags uint32) (any, error) {
	return t.DecodeFunc(data, flags)
}

// DefaultTranscoder stores strings and byte slices as-is and everything else
// as JSON. A stored plain string is therefore not a JSON document, and
// sub-document operations on it fail with DOC_NOTJSON.
type DefaultTranscoder struct{}

func (DefaultTranscoder) Encode(v any) ([]byte, uint32, error) {
	switch v := v.(type) {
	case string:
		return []byte(v), FlagFormatString, nil
	case []byte:
		return slices.Clone(v), FlagFormatBinary, nil
	case *Node:
		return v.AppendJSON(nil), FlagFormatJSON, nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, 0, fmt.Errorf("invalid JSON in json.RawMessage")
		}
		return slices.Clone(v), FlagFormatJSON, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, 0, err
	}
	return raw, FlagFormatJSON, nil
}

func (DefaultTranscoder) Decode(data []byte, flags uint32) (any, error) {
	switch flags & FlagFormatMask {
	case FlagFormatString:
		return string(data), nil
	case FlagFormatBinary:
		return slices.Clone(data), nil
	case FlagFormatMsgpack:
		return decodeMsgpack(data)
	case FlagFormatJSON:
		n, err := DecodeJSON(data)
		if err != nil {
			return nil, err
		}
		return n.Interface(), nil
	default:
		if n, err := DecodeJSON(data); err == nil {
			return n.Interface(), nil
		}
		return slices.Clone(data), nil
	}
}

// MsgpackTranscoder stores every value as msgpack. Such documents are opaque
// to sub-document operations.
type MsgpackTranscoder struct{}

func (MsgpackTranscoder) Encode(v any) ([]byte, uint32, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), FlagFormatMsgpack, nil
}

func (MsgpackTranscoder) Decode(data []byte, flags uint32) (any, error) {
	if flags&FlagFormatMask == FlagFormatMsgpack {
		return decodeMsgpack(data)
	}
	return DefaultTranscoder{}.Decode(data, flags)
}

func decodeMsgpack(data []byte) (any, error) {
	var v any
	dec := msgpack.GetDecoder()
	dec.Reset(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	err := dec.Decode(&v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(data, 0, err, "failed to decode msgpack")
	}
	return v, nil
}
