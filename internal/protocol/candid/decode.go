package candid

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/danmuck/rsvpctl/internal/protocol/schema"
)

const (
	// MaxTypeTable bounds the number of composite type definitions.
	MaxTypeTable = 64
	// MaxDepth bounds record/vec nesting in a decoded tree.
	MaxDepth = 16
	// MaxVecLen bounds one vec independent of remaining bytes.
	MaxVecLen = 1 << 20
)

type fieldDef struct {
	id  uint8
	ref uint8
}

type typeDef struct {
	code   uint8
	fields []fieldDef
	elem   uint8
}

// decoder bounds the decoded tree to one node per payload byte, so
// zero-width elements such as record{} cannot fan out past the input size.
type decoder struct {
	buf   []byte
	off   int
	table []typeDef
	nodes int
}

// Decode decodes a payload carrying exactly one argument.
func Decode(b []byte) (Value, error) {
	args, err := DecodeArgs(b)
	if err != nil {
		return Value{}, err
	}
	if len(args) != 1 {
		return Value{}, fmt.Errorf("%w: got %d want 1", ErrArgCount, len(args))
	}
	return args[0], nil
}

// DecodeArgs decodes every argument of a payload without knowing its shape in
// advance.
func DecodeArgs(b []byte) ([]Value, error) {
	if len(b) < len(Magic) {
		return nil, ErrTruncated
	}
	if string(b[:len(Magic)]) != Magic {
		return nil, ErrInvalidMagic
	}
	d := &decoder{buf: b, off: len(Magic)}
	if err := d.readTypeTable(); err != nil {
		return nil, err
	}

	argCount, err := d.u8()
	if err != nil {
		return nil, err
	}
	refs := make([]uint8, argCount)
	for i := range refs {
		ref, err := d.u8()
		if err != nil {
			return nil, err
		}
		if err := d.checkRef(ref); err != nil {
			return nil, err
		}
		refs[i] = ref
	}

	args := make([]Value, 0, argCount)
	for _, ref := range refs {
		v, err := d.readValue(ref, 0)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if d.off != len(d.buf) {
		return nil, fmt.Errorf("%w: %d", ErrTrailingBytes, len(d.buf)-d.off)
	}
	return args, nil
}

func (d *decoder) readTypeTable() error {
	n, err := d.u8()
	if err != nil {
		return err
	}
	if int(n) > MaxTypeTable {
		return ErrTypeTableTooLarge
	}
	d.table = make([]typeDef, 0, n)
	for i := 0; i < int(n); i++ {
		code, err := d.u8()
		if err != nil {
			return err
		}
		switch code {
		case schema.TypeRecord:
			count, err := d.u8()
			if err != nil {
				return err
			}
			fields := make([]fieldDef, 0, count)
			for j := 0; j < int(count); j++ {
				id, err := d.u8()
				if err != nil {
					return err
				}
				ref, err := d.u8()
				if err != nil {
					return err
				}
				if j > 0 && id <= fields[j-1].id {
					return ErrFieldOrder
				}
				fields = append(fields, fieldDef{id: id, ref: ref})
			}
			d.table = append(d.table, typeDef{code: code, fields: fields})
		case schema.TypeVec:
			elem, err := d.u8()
			if err != nil {
				return err
			}
			d.table = append(d.table, typeDef{code: code, elem: elem})
		default:
			return fmt.Errorf("%w: table entry 0x%02x", ErrUnknownType, code)
		}
	}
	for _, def := range d.table {
		for _, f := range def.fields {
			if err := d.checkRef(f.ref); err != nil {
				return err
			}
		}
		if def.code == schema.TypeVec {
			if err := d.checkRef(def.elem); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) checkRef(ref uint8) error {
	switch ref {
	case schema.TypeText, schema.TypeNat64:
		return nil
	}
	if ref < schema.MaxTableIndex && int(ref) < len(d.table) {
		return nil
	}
	return fmt.Errorf("%w: 0x%02x", ErrUnknownType, ref)
}

func (d *decoder) readValue(ref uint8, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, ErrTooDeep
	}
	d.nodes++
	if d.nodes > len(d.buf) {
		return Value{}, fmt.Errorf("%w: more than %d values in %d bytes", ErrInvalidLength, len(d.buf), len(d.buf))
	}
	switch ref {
	case schema.TypeText:
		return d.readText()
	case schema.TypeNat64:
		if d.remaining() < nat64Len {
			return Value{}, ErrTruncated
		}
		n := binary.LittleEndian.Uint64(d.buf[d.off : d.off+nat64Len])
		d.off += nat64Len
		return NewNat(n), nil
	}

	def := d.table[ref]
	switch def.code {
	case schema.TypeRecord:
		fields := make([]Field, 0, len(def.fields))
		for _, fd := range def.fields {
			v, err := d.readValue(fd.ref, depth+1)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{ID: fd.id, Value: v})
		}
		return Value{Kind: KindRecord, Fields: fields}, nil
	case schema.TypeVec:
		n, err := d.u32()
		if err != nil {
			return Value{}, err
		}
		if n > MaxVecLen || int(n) > len(d.buf)-d.nodes {
			return Value{}, fmt.Errorf("%w: vec length %d", ErrInvalidLength, n)
		}
		items := make([]Value, 0, min(int(n), d.remaining()))
		for i := uint32(0); i < n; i++ {
			v, err := d.readValue(def.elem, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{Kind: KindVec, Items: items}, nil
	default:
		return Value{}, fmt.Errorf("%w: 0x%02x", ErrUnknownType, def.code)
	}
}

func (d *decoder) readText() (Value, error) {
	l, err := d.u32()
	if err != nil {
		return Value{}, err
	}
	if uint64(l) > uint64(d.remaining()) {
		return Value{}, fmt.Errorf("%w: text length %d exceeds %d remaining", ErrTruncated, l, d.remaining())
	}
	raw := d.buf[d.off : d.off+int(l)]
	d.off += int(l)
	if !utf8.Valid(raw) {
		return Value{}, ErrInvalidUTF8
	}
	return NewText(string(raw)), nil
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) u8() (uint8, error) {
	if d.remaining() < 1 {
		return 0, ErrTruncated
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

func (d *decoder) u32() (uint32, error) {
	if d.remaining() < textPrefixLen {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off : d.off+textPrefixLen])
	d.off += textPrefixLen
	return v, nil
}
