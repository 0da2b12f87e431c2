package values

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
)

// Value is a tagged scalar: exactly one of Int, Float, Bool, or Text is
// meaningful, selected by Kind. The zero Value is KindNull.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Int wraps a signed 64-bit integer.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float wraps a 64-bit float.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Text wraps a UTF-8 string.
func Text(v string) Value { return Value{kind: KindText, s: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the wrapped int64 and whether v is KindInt.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the wrapped float64 and whether v is KindFloat.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the wrapped bool and whether v is KindBool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsText returns the wrapped string and whether v is KindText.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// Numeric reports whether v is Int or Float, returning its value as a
// float64 either way. Used by ORDER BY's cross-variant numeric bucket and
// by aggregations, which compare across int/float using float semantics.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal implements the structural equality of §3: cross-variant comparison
// is never equal, and numeric comparisons across Int/Float use float
// semantics (so Int(2) == Float(2.0)).
func (v Value) Equal(other Value) bool {
	vn, vIsNum := v.Numeric()
	on, oIsNum := other.Numeric()
	if vIsNum && oIsNum {
		return vn == on
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindText:
		return v.s == other.s
	default:
		return false
	}
}

func variantRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindText:
		return 3
	default:
		return 4
	}
}

// Compare returns -1, 0, or 1 per the total order of §3: Null smallest,
// then Bool, then numeric (Int/Float compared as float), then Text
// lexicographic. Used only by ORDER BY, which must never panic on
// incompatible variants.
func (v Value) Compare(other Value) int {
	vn, vIsNum := v.Numeric()
	on, oIsNum := other.Numeric()
	if vIsNum && oIsNum {
		switch {
		case vn < on:
			return -1
		case vn > on:
			return 1
		default:
			return 0
		}
	}

	vr, or := variantRank(v.kind), variantRank(other.kind)
	if vr != or {
		if vr < or {
			return -1
		}
		return 1
	}

	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if v.b == other.b {
			return 0
		}
		if !v.b && other.b {
			return -1
		}
		return 1
	case KindText:
		return strings.Compare(v.s, other.s)
	default:
		return 0
	}
}

// String renders v for logging and debug output, not as a query surface.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindText:
		return v.s
	default:
		return "?"
	}
}

// wireValue is the on-disk/wire shape for Value, used by the bbolt
// persistent backend (spec §6) so a Value survives a close-then-reopen
// round trip with its variant intact.
type wireValue struct {
	Kind Kind    `json:"kind"`
	I    int64   `json:"i,omitempty"`
	F    float64 `json:"f,omitempty"`
	B    bool    `json:"b,omitempty"`
	S    string  `json:"s,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireValue{Kind: v.kind, I: v.i, F: v.f, B: v.b, S: v.s})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v.kind, v.i, v.f, v.b, v.s = w.Kind, w.I, w.F, w.B, w.S
	return nil
}

// Properties maps property keys to Values. Key order is never semantic; a
// key is present iff it exists in the map — a stored Null is distinct from
// an absent key.
type Properties map[string]Value

// Clone returns a shallow copy (Values are immutable scalars, so this is a
// full logical copy).
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Equal reports whether two property maps hold the same keys and
// structurally-equal values, regardless of iteration order.
func (p Properties) Equal(other Properties) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Merge applies update semantics (§4.1 update_node_props): keys in patch
// override; keys absent from patch are preserved from p. Returns a new map.
func (p Properties) Merge(patch Properties) Properties {
	out := p.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}
