package dataset

import "strconv"

// ValueKind discriminates the scalar variants a cell can hold.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindString
	KindFloat
)

// Value is one scalar cell. The zero Value is missing, which is how null
// cells in the raw tables are represented after coercion.
type Value struct {
	kind ValueKind
	str  string
	num  float64
}

// String builds a string cell.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// Float builds a numeric cell.
func FloatValue(f float64) Value { return Value{kind: KindFloat, num: f} }

// Missing is the null cell.
func Missing() Value { return Value{} }

// Kind returns the cell's variant.
func (v Value) Kind() ValueKind { return v.kind }

// IsMissing reports whether the cell is null.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric value and whether the cell holds one.
func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.num, true
}

// String renders the cell for serialization. Missing cells render empty.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return ""
	}
}

// Equal reports cell equality. Satisfies go-cmp's Equal convention so tests
// can compare records without reaching into unexported fields.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindFloat:
		return v.num == o.num
	default:
		return true
	}
}
