package ir

import (
	"fmt"
	"math"
)

// constantKind distinguishes the payload carried by a constant Symbol.
type constantKind int

const (
	constBool constantKind = iota
	constInt
	constFloat
	constString
)

// constantValue is the uniqued payload of a constant Symbol. Numeric
// uniquing keys are compared bitwise (width, sign, bit pattern) rather than
// by numeric value, so -0.0 and 0.0 of the same width are distinct
// constants, matching a total bitwise order over the representation instead
// of IEEE equality.
type constantValue struct {
	kind   constantKind
	data   DataType
	bits   uint64 // bool/int/float payload, reinterpreted per kind
	signed bool
	str    StringRef
	table  *Context
}

func (c *constantValue) String() string {
	switch c.kind {
	case constBool:
		return fmt.Sprintf("bool %v", c.bits != 0)
	case constInt:
		if c.signed {
			return fmt.Sprintf("%s %d", c.data, int64(c.bits))
		}
		return fmt.Sprintf("%s %d", c.data, c.bits)
	case constFloat:
		if c.data == DataFloat32 {
			return fmt.Sprintf("float32 %v", math.Float32frombits(uint32(c.bits)))
		}
		return fmt.Sprintf("float64 %v", math.Float64frombits(c.bits))
	case constString:
		return fmt.Sprintf("string %q", c.table.strings.Resolve(c.str))
	default:
		return "<constant>"
	}
}

// constantKey is the uniquing key for the context's constant map: a plain
// comparable struct, letting a native Go map do the bitwise comparison the
// original implementation hand-rolled as a three-way comparator.
type constantKey struct {
	kind constantKind
	data DataType
	bits uint64
	str  StringRef
}

// Context owns every uniquing map the IR needs: numeric and boolean
// constants (keyed bitwise), and the interned string table. It is
// process-scoped and mutated only while the emitter lowers AST to IR; after
// that point it is read-only, same as the Program it seeded.
type Context struct {
	strings   *StringTable
	constants map[constantKey]*Symbol
}

// NewContext creates an empty, ready-to-use interning context.
func NewContext() *Context {
	return &Context{
		strings:   NewStringTable(),
		constants: make(map[constantKey]*Symbol),
	}
}

func (c *Context) intern(key constantKey, build func() *Symbol) *Symbol {
	if sym, ok := c.constants[key]; ok {
		return sym
	}
	sym := build()
	c.constants[key] = sym
	return sym
}

// Bool returns the unique symbol for a boolean constant.
func (c *Context) Bool(v bool) *Symbol {
	bits := uint64(0)
	if v {
		bits = 1
	}
	key := constantKey{kind: constBool, data: DataBool, bits: bits}
	return c.intern(key, func() *Symbol {
		return &Symbol{kind: SymConstant, Type: &ScalarType{Domain: "public", Data: DataBool},
			constant: &constantValue{kind: constBool, data: DataBool, bits: bits, table: c}}
	})
}

// Int returns the unique symbol for a signed or unsigned integer constant
// of the given width. value is the two's-complement bit pattern truncated
// to dt's width.
func (c *Context) Int(dt DataType, value uint64) *Symbol {
	mask := widthMask(dt.Width())
	bits := value & mask
	key := constantKey{kind: constInt, data: dt, bits: bits}
	return c.intern(key, func() *Symbol {
		return &Symbol{kind: SymConstant, Type: &ScalarType{Domain: "public", Data: dt},
			constant: &constantValue{kind: constInt, data: dt, bits: bits, signed: dt.IsSigned(), table: c}}
	})
}

// Float returns the unique symbol for a 32- or 53-bit-precision float
// constant, uniqued by the raw IEEE bit pattern.
func (c *Context) Float(dt DataType, value float64) *Symbol {
	var bits uint64
	if dt == DataFloat32 {
		bits = uint64(math.Float32bits(float32(value)))
	} else {
		bits = math.Float64bits(value)
	}
	key := constantKey{kind: constFloat, data: dt, bits: bits}
	return c.intern(key, func() *Symbol {
		return &Symbol{kind: SymConstant, Type: &ScalarType{Domain: "public", Data: dt},
			constant: &constantValue{kind: constFloat, data: dt, bits: bits, table: c}}
	})
}

// String returns the unique symbol for an interned string literal.
func (c *Context) String(s string) *Symbol {
	ref := c.strings.Intern(s)
	key := constantKey{kind: constString, data: DataString, str: ref}
	return c.intern(key, func() *Symbol {
		return &Symbol{kind: SymConstant, Type: &ScalarType{Domain: "public", Data: DataString},
			constant: &constantValue{kind: constString, data: DataString, str: ref, table: c}}
	})
}

func widthMask(width int) uint64 {
	if width <= 0 || width >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(width)) - 1
}
