package ir

import "fmt"

// Type is a SecreC type as carried by a Symbol. The core treats types as
// opaque payloads: it never type-checks, it only stores and prints them.
type Type interface {
	String() string
}

// DataType enumerates the scalar base types the constant pool and the
// variable model need to distinguish.
type DataType int

const (
	DataBool DataType = iota
	DataInt8
	DataInt16
	DataInt32
	DataInt64
	DataUint8
	DataUint16
	DataUint32
	DataUint64
	DataFloat32
	DataFloat64
	DataString
)

func (d DataType) String() string {
	switch d {
	case DataBool:
		return "bool"
	case DataInt8:
		return "int8"
	case DataInt16:
		return "int16"
	case DataInt32:
		return "int32"
	case DataInt64:
		return "int64"
	case DataUint8:
		return "uint8"
	case DataUint16:
		return "uint16"
	case DataUint32:
		return "uint32"
	case DataUint64:
		return "uint64"
	case DataFloat32:
		return "float32"
	case DataFloat64:
		return "float64"
	case DataString:
		return "string"
	default:
		return "?"
	}
}

// Width reports the bit width of an integer/float data type; 0 for bool and
// string, which are not uniqued by width in the constant pool.
func (d DataType) Width() int {
	switch d {
	case DataInt8, DataUint8:
		return 8
	case DataInt16, DataUint16:
		return 16
	case DataInt32, DataUint32, DataFloat32:
		return 32
	case DataInt64, DataUint64, DataFloat64:
		return 64
	default:
		return 0
	}
}

func (d DataType) IsFloat() bool { return d == DataFloat32 || d == DataFloat64 }
func (d DataType) IsSigned() bool {
	switch d {
	case DataInt8, DataInt16, DataInt32, DataInt64, DataFloat32, DataFloat64:
		return true
	default:
		return false
	}
}

// ScalarType is a SecreC public/private scalar, e.g. "public uint32" or
// "private bool". Domain is the security domain annotation (public, or a
// named MPC protection domain); it is opaque beyond its name.
type ScalarType struct {
	Domain string
	Data   DataType
}

func (t *ScalarType) String() string {
	return fmt.Sprintf("%s %s", t.Domain, t.Data)
}

// ArrayType is a scalar type with a fixed dimensionality (0 = scalar).
type ArrayType struct {
	Elem *ScalarType
	Dim  int
}

func (t *ArrayType) String() string {
	if t.Dim == 0 {
		return t.Elem.String()
	}
	return fmt.Sprintf("%s[[%d]]", t.Elem.String(), t.Dim)
}

// VoidType is the return type of a procedure that returns nothing.
type VoidType struct{}

func (VoidType) String() string { return "void" }

// ProcedureType is the signature of a procedure, carried by its Symbol.
type ProcedureType struct {
	Params []Type
	Return Type
}

func (t *ProcedureType) String() string {
	s := "("
	for i, p := range t.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") -> " + t.Return.String()
}
