package candid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/rsvpctl/internal/protocol/schema"
)

// Kind tags one node of a decoded value tree.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindNat
	KindRecord
	KindVec
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNat:
		return "nat"
	case KindRecord:
		return "record"
	case KindVec:
		return "vec"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Field is one record entry. Records keep fields in wire order.
type Field struct {
	ID    uint8
	Value Value
}

// Value is an untyped node of a decoded reply. Only the member matching Kind
// is meaningful.
type Value struct {
	Kind   Kind
	Text   string
	Nat    uint64
	Fields []Field
	Items  []Value
}

// NewText creates a text value.
func NewText(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// NewNat creates a nat64 value.
func NewNat(n uint64) Value {
	return Value{Kind: KindNat, Nat: n}
}

// NewRecord creates a record value from fields in the given order.
func NewRecord(fields ...Field) Value {
	out := make([]Field, len(fields))
	copy(out, fields)
	return Value{Kind: KindRecord, Fields: out}
}

// NewVec creates a vec value.
func NewVec(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{Kind: KindVec, Items: out}
}

// AsText returns the value as text.
func (v Value) AsText() (string, error) {
	if v.Kind != KindText {
		return "", fmt.Errorf("%w: got %s want text", ErrKindMismatch, v.Kind)
	}
	return v.Text, nil
}

// AsNat returns the value as nat64.
func (v Value) AsNat() (uint64, error) {
	if v.Kind != KindNat {
		return 0, fmt.Errorf("%w: got %s want nat", ErrKindMismatch, v.Kind)
	}
	return v.Nat, nil
}

// Field looks up a record field by id.
func (v Value) Field(id uint8) (Value, bool) {
	if v.Kind != KindRecord {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.ID == id {
			return f.Value, true
		}
	}
	return Value{}, false
}

// TextField returns a text field or fallback when absent or not text.
func (v Value) TextField(id uint8, fallback string) string {
	f, ok := v.Field(id)
	if !ok || f.Kind != KindText {
		return fallback
	}
	return f.Text
}

// NatField returns a nat field or fallback when absent or not nat.
func (v Value) NatField(id uint8, fallback uint64) uint64 {
	f, ok := v.Field(id)
	if !ok || f.Kind != KindNat {
		return fallback
	}
	return f.Nat
}

// Len is the number of record fields or vec items.
func (v Value) Len() int {
	switch v.Kind {
	case KindRecord:
		return len(v.Fields)
	case KindVec:
		return len(v.Items)
	default:
		return 0
	}
}

// String renders the tree in a compact diagnostic form.
func (v Value) String() string {
	var b strings.Builder
	v.writeTo(&b)
	return b.String()
}

func (v Value) writeTo(b *strings.Builder) {
	switch v.Kind {
	case KindText:
		b.WriteString(strconv.Quote(v.Text))
	case KindNat:
		b.WriteString(strconv.FormatUint(v.Nat, 10))
	case KindRecord:
		b.WriteString("record {")
		for i, f := range v.Fields {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(strconv.Itoa(int(f.ID)))
			b.WriteString(" = ")
			f.Value.writeTo(b)
		}
		b.WriteString("}")
	case KindVec:
		b.WriteString("vec {")
		for i, item := range v.Items {
			if i > 0 {
				b.WriteString("; ")
			}
			item.writeTo(b)
		}
		b.WriteString("}")
	default:
		b.WriteString("<invalid>")
	}
}

func (v Value) typeCode() (uint8, bool) {
	switch v.Kind {
	case KindText:
		return schema.TypeText, true
	case KindNat:
		return schema.TypeNat64, true
	default:
		return 0, false
	}
}

func (v Value) fieldRefs() []schema.FieldRef {
	refs := make([]schema.FieldRef, 0, len(v.Fields))
	for _, f := range v.Fields {
		code, ok := f.Value.typeCode()
		if !ok {
			switch f.Value.Kind {
			case KindRecord:
				code = schema.TypeRecord
			case KindVec:
				code = schema.TypeVec
			}
		}
		refs = append(refs, schema.FieldRef{ID: f.ID, Type: code})
	}
	return refs
}
