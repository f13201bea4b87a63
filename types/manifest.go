//nolint:revive // types is a common Go package naming convention
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind discriminates a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

// Value is a decoded JSON value that keeps object key order.
// Manifest fields like "exports" and "typesVersions" are walked in
// document order so candidate derivation is deterministic.
type Value struct {
	Kind  Kind
	Str   string
	Bool  bool
	Keys  []string
	Items []Value

	fields map[string]Value
}

// Field returns the member named key of an object value.
func (v Value) Field(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// StringField returns a string member of an object value.
func (v Value) StringField(key string) (string, bool) {
	f, ok := v.Field(key)
	if !ok || f.Kind != KindString {
		return "", false
	}
	return f.Str, true
}

// MaxDepth bounds the nesting of arrays and objects in a decoded Value.
const MaxDepth = 64

// ErrTooDeep is returned for documents nested deeper than MaxDepth.
var ErrTooDeep = errors.New("json nesting exceeds maximum depth")

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec, 0)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return Value{Kind: KindNumber, Str: t.String()}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case json.Delim:
		if depth >= MaxDepth {
			return Value{}, ErrTooDeep
		}
		switch t {
		case '{':
			obj := Value{Kind: KindObject, fields: make(map[string]Value)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T, want string", keyTok)
				}
				member, err := decodeValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				if _, dup := obj.fields[key]; !dup {
					obj.Keys = append(obj.Keys, key)
				}
				obj.fields[key] = member
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return obj, nil
		case '[':
			arr := Value{Kind: KindArray}
			for dec.More() {
				item, err := decodeValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return arr, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// Manifest is the subset of package.json that drives declaration lookup.
type Manifest struct {
	Name    string
	Types   string
	Typings string
	// TypesVersions is the version-conditional type map. Both the npm key
	// "typesVersions" and the legacy spelling "typeVersions" populate it.
	TypesVersions Value
	// Exports is the conditional-exports tree.
	Exports Value
}

// ErrManifestNotObject is returned when package.json is not a JSON object.
var ErrManifestNotObject = errors.New("manifest is not a JSON object")

// ParseManifest decodes package.json text.
func ParseManifest(data []byte) (*Manifest, error) {
	var root Value
	if err := root.UnmarshalJSON(data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse manifest: empty document")
		}
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if root.Kind != KindObject {
		return nil, ErrManifestNotObject
	}

	m := &Manifest{}
	m.Name, _ = root.StringField("name")
	m.Types, _ = root.StringField("types")
	m.Typings, _ = root.StringField("typings")
	if tv, ok := root.Field("typesVersions"); ok {
		m.TypesVersions = tv
	} else if tv, ok := root.Field("typeVersions"); ok {
		m.TypesVersions = tv
	}
	if ex, ok := root.Field("exports"); ok {
		m.Exports = ex
	}
	return m, nil
}
