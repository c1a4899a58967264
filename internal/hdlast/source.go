package hdlast

import "fmt"

// SourceLocation pins a single point in a design source file.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// SourceRange is a half-open [Start, End) span of source text.
type SourceRange struct {
	Start SourceLocation
	End   SourceLocation
}

// NoLocation is the zero SourceLocation, used for notes that don't
// point at a second source range (e.g. NoteFromHere2).
var NoLocation = SourceLocation{}

// SameStart reports whether two ranges begin at the same location,
// the signal used to decide between "assigned here" and "from here"
// diagnostic notes when two drivers trace back to the same macro or
// generate-template expansion.
func (r SourceRange) SameStart(o SourceRange) bool {
	return r.Start == o.Start
}
