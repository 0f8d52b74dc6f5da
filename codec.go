package beet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
)

// Codec translates between the serialized bytes of a file and its in-memory
// content value.
//
// The concrete content type is codec-specific: JSON files hold
// map[string]any, text files hold string, and binary files hold []byte.
type Codec interface {
	// Decode parses serialized bytes. Malformed input is reported as
	// [ErrFormat].
	Decode(data []byte) (any, error)
	// Encode serializes a content value previously produced by Decode or
	// assembled by the caller.
	Encode(v any) ([]byte, error)
}

// Codec singletons.
var (
	JSON   Codec = jsonCodec{}
	PNG    Codec = pngCodec{}
	Text   Codec = textCodec{}
	Binary Codec = binaryCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Decode(data []byte) (any, error) {
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &Error{Kind: ErrFormat, Message: "invalid json", Inner: err}
	}
	return v, nil
}

func (jsonCodec) Encode(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, &Error{Kind: ErrFormat, Message: "unencodable json value", Inner: err}
	}
	return append(b, '\n'), nil
}

type pngCodec struct{}

func (pngCodec) Decode(data []byte) (any, error) {
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, &Error{Kind: ErrFormat, Message: "invalid png", Inner: err}
	}
	// The raw bytes are the canonical representation; decoding only
	// validates the stream.
	return data, nil
}

func (pngCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, &Error{Kind: ErrFormat, Message: fmt.Sprintf("png content must be []byte, got %T", v)}
	}
	return b, nil
}

type textCodec struct{}

func (textCodec) Decode(data []byte) (any, error) {
	return string(data), nil
}

func (textCodec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, &Error{Kind: ErrFormat, Message: fmt.Sprintf("text content must be string, got %T", v)}
	}
	return []byte(s), nil
}

type binaryCodec struct{}

func (binaryCodec) Decode(data []byte) (any, error) {
	return data, nil
}

func (binaryCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, &Error{Kind: ErrFormat, Message: fmt.Sprintf("binary content must be []byte, got %T", v)}
	}
	return b, nil
}

// JSONEqual reports structural equality of two JSON-ish values.
//
// Comparing the canonical serialized form sidesteps the int/float64
// distinction between assembled and decoded values: encoding/json sorts map
// keys, so equal structures always serialize identically.
func JSONEqual(a, b any) bool {
	ab, aerr := json.Marshal(a)
	bb, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return aerr == nil && berr == nil
	}
	return bytes.Equal(ab, bb)
}

// DeepCopy copies nested JSON-ish structures. Scalars and unknown types are
// returned as-is.
func DeepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = DeepCopy(e)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = DeepCopy(e)
		}
		return s
	case []byte:
		return bytes.Clone(v)
	default:
		return v
	}
}

// asInt coerces the numeric representations produced by decoding or assembly
// into an int. Reports false for non-numbers.
func asInt(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// getMap returns m[key] as an object, materializing an empty one if absent.
func getMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	v := make(map[string]any)
	m[key] = v
	return v
}

// getSlice returns m[key] as a list, materializing an empty one if absent.
func getSlice(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	v := []any{}
	m[key] = v
	return v
}
