package column

// AttrValue is a small tagged union over the handful of value shapes that
// attribute bags actually carry: a scalar, a text string, or a short
// numeric vector (e.g. valid_range).
type AttrValue struct {
	kind   attrKind
	text   string
	number float64
	vector []float64
}

type attrKind int

const (
	attrText attrKind = iota
	attrNumber
	attrVector
)

// TextAttr builds a text-valued attribute.
func TextAttr(s string) AttrValue { return AttrValue{kind: attrText, text: s} }

// NumberAttr builds a numeric-valued attribute.
func NumberAttr(n float64) AttrValue { return AttrValue{kind: attrNumber, number: n} }

// VectorAttr builds a short-vector-valued attribute.
func VectorAttr(v []float64) AttrValue { return AttrValue{kind: attrVector, vector: v} }

// IsText, Text, IsNumber, Number, IsVector, Vector expose the tag and
// payload without a type assertion at call sites.
func (v AttrValue) IsText() bool       { return v.kind == attrText }
func (v AttrValue) Text() string       { return v.text }
func (v AttrValue) IsNumber() bool     { return v.kind == attrNumber }
func (v AttrValue) Number() float64    { return v.number }
func (v AttrValue) IsVector() bool     { return v.kind == attrVector }
func (v AttrValue) Vector() []float64  { return v.vector }

// Equal compares two attribute values for the schema-sentinel equality
// check; vectors compare element-wise.
func (v AttrValue) Equal(other AttrValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case attrText:
		return v.text == other.text
	case attrNumber:
		return v.number == other.number
	case attrVector:
		if len(v.vector) != len(other.vector) {
			return false
		}
		for i := range v.vector {
			if v.vector[i] != other.vector[i] {
				return false
			}
		}
		return true
	}
	return false
}

// nullSentinel is the literal override value that deletes a source
// attribute rather than replacing it, per the design notes.
const nullSentinel = "null"

// Attrs is a name -> value attribute bag, used both for a column's
// source-captured metadata and for a caller-supplied override layer.
type Attrs map[string]AttrValue

// Merge layers override on top of a (copied) receiver: override entries
// replace source entries of the same name, and an override value of the
// literal text "null" deletes the source entry instead of appearing in
// the result.
func (a Attrs) Merge(override Attrs) Attrs {
	out := make(Attrs, len(a)+len(override))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range override {
		if v.IsText() && v.Text() == nullSentinel {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
