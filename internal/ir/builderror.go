package ir

import "fmt"

// ErrorKind classifies the ways CFG construction can fail. Every kind here
// is a defect in the instruction list itself (an emitter bug), never a
// transient condition: BuildProgram either succeeds or reports one of
// these.
type ErrorKind int

const (
	// ErrEmptyProgram means the instruction list had no instructions at all.
	ErrEmptyProgram ErrorKind = iota
	// ErrNoMain means the first declared procedure's entry did not match
	// the list's first instruction.
	ErrNoMain
	// ErrIllFormed means some instruction's cross-reference is missing or
	// points at the wrong kind of thing: an unresolved jump target, a CALL
	// without its RETCLEAN, a RETCLEAN without its CALL, or a RETURN
	// without its procedure entry.
	ErrIllFormed
	// ErrDivergence means a data-flow analysis failed to reach a fixed
	// point within the iteration bound the lattice height guarantees.
	ErrDivergence
)

func (k ErrorKind) String() string {
	switch k {
	case ErrEmptyProgram:
		return "empty program"
	case ErrNoMain:
		return "no main procedure"
	case ErrIllFormed:
		return "ill-formed IR"
	case ErrDivergence:
		return "analysis did not converge"
	default:
		return "unknown error"
	}
}

// BuildError reports a structural defect found while constructing a
// Program or running an analysis over one. Index and Opcode are only
// meaningful for ErrIllFormed; they name the offending instruction by its
// 1-based position and opcode rather than a source location, since core IR
// carries no source positions of its own.
type BuildError struct {
	Kind   ErrorKind
	Index  int
	Opcode Opcode
}

func (e *BuildError) Error() string {
	switch e.Kind {
	case ErrIllFormed:
		return fmt.Sprintf("ill-formed IR: instruction %d (%s) has an unresolved reference", e.Index, e.Opcode)
	default:
		return e.Kind.String()
	}
}
