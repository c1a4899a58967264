package diag

// Code is a fixed diagnostic code emitted by the driver legality
// matrix. The set is closed and required by the specification;
// anything the tracker reports is one of these.
type Code int

const (
	InputPortAssign Code = iota
	InputPortCoercion
	OutputPortCoercion
	ClockVarTargetAssign
	MultipleAlwaysAssigns
	MultipleUWireDrivers
	MultipleUDNTDrivers
	MultipleContAssigns
	MixedVarAssigns
	ModportPropagationOverflow
)

// Severity classifies a diagnostic as tolerated-but-reported or fatal
// to the overlap scan that produced it.
type Severity int

const (
	Warning Severity = iota
	Error
)

var codeInfo = map[Code]struct {
	name     string
	severity Severity
}{
	InputPortAssign:            {"InputPortAssign", Error},
	InputPortCoercion:          {"InputPortCoercion", Warning},
	OutputPortCoercion:         {"OutputPortCoercion", Warning},
	ClockVarTargetAssign:       {"ClockVarTargetAssign", Error},
	MultipleAlwaysAssigns:      {"MultipleAlwaysAssigns", Error},
	MultipleUWireDrivers:       {"MultipleUWireDrivers", Error},
	MultipleUDNTDrivers:        {"MultipleUDNTDrivers", Error},
	MultipleContAssigns:        {"MultipleContAssigns", Error},
	MixedVarAssigns:            {"MixedVarAssigns", Error},
	ModportPropagationOverflow: {"ModportPropagationOverflow", Error},
}

func (c Code) String() string {
	if info, ok := codeInfo[c]; ok {
		return info.name
	}
	return "Unknown"
}

// Severity returns the severity associated with a code. It is the only
// source of a diagnostic's severity: handleOverlap makes port drivers on
// nets warnings and on variables errors by choosing the code it reports
// (InputPortCoercion/OutputPortCoercion vs. InputPortAssign).
func (c Code) Severity() Severity {
	if info, ok := codeInfo[c]; ok {
		return info.severity
	}
	return Error
}

// NoteCode enumerates the secondary-location notes a diagnostic can
// carry.
type NoteCode int

const (
	NoteDeclarationHere NoteCode = iota
	NoteDrivenHere
	NoteAssignedHere
	NoteReferencedHere
	NoteFromHere2
	NoteOriginalAssign
)

func (n NoteCode) String() string {
	switch n {
	case NoteDeclarationHere:
		return "declared here"
	case NoteDrivenHere:
		return "driven here"
	case NoteAssignedHere:
		return "assigned here"
	case NoteReferencedHere:
		return "referenced here"
	case NoteFromHere2:
		return "from here"
	case NoteOriginalAssign:
		return "original assignment here"
	default:
		return "note"
	}
}
