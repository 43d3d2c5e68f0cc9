// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DetailValue is one value in a Detail map. The set of implementations is
// closed: StringValue, IntValue, FloatValue, BoolValue, StringsValue.
type DetailValue interface {
	detailValue()
	String() string
}

type (
	StringValue  string
	IntValue     int
	FloatValue   float64
	BoolValue    bool
	StringsValue []string
)

func (StringValue) detailValue()  {}
func (IntValue) detailValue()     {}
func (FloatValue) detailValue()   {}
func (BoolValue) detailValue()    {}
func (StringsValue) detailValue() {}

func (v StringValue) String() string  { return string(v) }
func (v IntValue) String() string     { return fmt.Sprintf("%d", int(v)) }
func (v FloatValue) String() string   { return fmt.Sprintf("%g", float64(v)) }
func (v BoolValue) String() string    { return fmt.Sprintf("%t", bool(v)) }
func (v StringsValue) String() string { return "[" + strings.Join(v, ", ") + "]" }

// MarshalJSON always writes a decimal point so whole floats decode back as
// FloatValue rather than IntValue.
func (v FloatValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported float value %v", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

// MarshalJSON writes a nil list as [] so it stays a StringsValue.
func (v StringsValue) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(v))
}

// Detail is the typed key-value payload attached to validation issues and
// extraction errors.
type Detail map[string]DetailValue

// Keys returns the detail keys in sorted order.
func (d Detail) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the detail as "k=v" pairs in key order.
func (d Detail) String() string {
	parts := make([]string, 0, len(d))
	for _, k := range d.Keys() {
		parts = append(parts, k+"="+d[k].String())
	}
	return strings.Join(parts, " ")
}

// UnmarshalJSON decodes a JSON object into the closed value set. Numbers
// without a fraction or exponent become IntValue, other numbers FloatValue,
// arrays of strings StringsValue. Null values are left out. Nested objects
// and mixed arrays are rejected.
func (d *Detail) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = nil
		return nil
	}
	out := make(Detail, len(raw))
	for k, msg := range raw {
		v, err := decodeDetailValue(msg)
		if err != nil {
			return fmt.Errorf("detail %q: %w", k, err)
		}
		if v == nil {
			continue
		}
		out[k] = v
	}
	*d = out
	return nil
}

func decodeDetailValue(msg json.RawMessage) (DetailValue, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if i, err := x.Int64(); err == nil {
				return IntValue(int(i)), nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return FloatValue(f), nil
	case []any:
		ss := make(StringsValue, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("list element %v is not a string", e)
			}
			ss = append(ss, s)
		}
		return ss, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
