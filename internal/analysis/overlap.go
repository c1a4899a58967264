package analysis

import (
	"github.com/robert-at-pretension-io/hdllint/internal/diag"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

func isUnidirectionalPortDriver(vd *ValueDriver) bool {
	return vd.Flags.Has(FlagInputPort) || vd.Flags.Has(FlagOutputPort)
}

func isInputPortDriver(vd *ValueDriver) bool {
	return vd.Flags.Has(FlagInputPort)
}

func isClockVarDriver(vd *ValueDriver) bool {
	return vd.Flags.Has(FlagClockVar)
}

// isProblem implements §4.2 step 7's overlap-problem predicate.
func isProblem(curr, driver *ValueDriver, checkOverlap, allowDupInitial bool) bool {
	if isUnidirectionalPortDriver(curr) != isUnidirectionalPortDriver(driver) {
		return true
	}
	if !checkOverlap {
		return false
	}
	if curr.DriverKind == Continuous || driver.DriverKind == Continuous {
		return true
	}
	if curr.DriverKind == Procedural && driver.DriverKind == Procedural &&
		curr.ContainingSymbol != driver.ContainingSymbol &&
		!shouldIgnore(curr, allowDupInitial) && !shouldIgnore(driver, allowDupInitial) &&
		(curr.Source.IsSingleDriverProcedure() || driver.Source.IsSingleDriverProcedure()) {
		return true
	}
	return false
}

// handleOverlap implements the decision matrix from §4.2. It returns
// true iff the condition it reported is a tolerated warning (the
// overlap scan for this insertion should continue); false means a hard
// error that ends the scan.
func handleOverlap(ctx *diag.Context, symbol hdlast.Symbol, bounds DriverBitRange, curr, driver *ValueDriver, isNet, isUWire, isSingleDriverUDNT bool, netTypeName string) bool {
	rng := driver.PrefixExpression.SourceRange()

	// Rules 1-2: a non-uwire/non-single-driver-UDNT net with one side a
	// unidirectional port, or a variable with one side an input port.
	isUnidirectionNetPort := isNet && (isUnidirectionalPortDriver(curr) || isUnidirectionalPortDriver(driver))
	if (isUnidirectionNetPort && !isUWire && !isSingleDriverUDNT) || (!isNet && (isInputPortDriver(curr) || isInputPortDriver(driver))) {
		code := diag.InputPortAssign
		if isNet {
			if curr.Flags.Has(FlagInputPort) {
				code = diag.InputPortCoercion
			} else {
				code = diag.OutputPortCoercion
			}
		}

		// We want to report the correct range for the port vs the
		// assignment. We only do this for input ports, since output
		// ports show up at the instantiation site and we'd rather that
		// be considered the "port declaration".
		portRange := curr.PrefixExpression.SourceRange()
		assignRange := driver.PrefixExpression.SourceRange()
		if isInputPortDriver(driver) || curr.Flags.Has(FlagOutputPort) {
			portRange, assignRange = assignRange, portRange
		}

		d := ctx.AddDiag(symbol, code, assignRange, symbol.Name())
		note := diag.NoteDeclarationHere
		if code == diag.OutputPortCoercion {
			note = diag.NoteDrivenHere
		}
		d.AddNote(note, portRange)

		// For variable ports this is an error, for nets it's a warning.
		return isNet
	}

	// Rules 3-5: clockvar interaction.
	currCV, driverCV := isClockVarDriver(curr), isClockVarDriver(driver)
	if currCV && driverCV {
		return true
	}
	if currCV != driverCV {
		cv, other := curr, driver
		if driverCV {
			cv, other = driver, curr
		}
		if other.DriverKind == Procedural {
			return true
		}
		d := ctx.AddDiag(symbol, diag.ClockVarTargetAssign, rng)
		d.AddNote(diag.NoteAssignedHere, cv.PrefixExpression.SourceRange())
		return false
	}

	// Rule 6: both procedural, at least one single-driver procedure.
	if curr.DriverKind == Procedural && driver.DriverKind == Procedural &&
		(curr.Source.IsSingleDriverProcedure() || driver.Source.IsSingleDriverProcedure()) {
		d := ctx.AddDiag(symbol, diag.MultipleAlwaysAssigns, rng, singleDriverBlockKind(curr, driver).String())
		addCrossReferenceNotes(d, curr, driver)
		return false
	}

	// Rule 7: uwire.
	if isUWire {
		d := ctx.AddDiag(symbol, diag.MultipleUWireDrivers, rng, symbol.Name())
		d.AddNote(diag.NoteDrivenHere, curr.PrefixExpression.SourceRange())
		return false
	}

	// Rule 8: single-driver UDNT.
	if isSingleDriverUDNT {
		d := ctx.AddDiag(symbol, diag.MultipleUDNTDrivers, rng, netTypeName)
		d.AddNote(diag.NoteDrivenHere, curr.PrefixExpression.SourceRange())
		return false
	}

	// Rule 9: both continuous.
	if curr.DriverKind == Continuous && driver.DriverKind == Continuous {
		d := ctx.AddDiag(symbol, diag.MultipleContAssigns, rng)
		d.AddNote(diag.NoteDrivenHere, curr.PrefixExpression.SourceRange())
		return false
	}

	// Rule 10: mixed continuous/procedural.
	d := ctx.AddDiag(symbol, diag.MixedVarAssigns, rng)
	d.AddNote(diag.NoteDrivenHere, curr.PrefixExpression.SourceRange())
	return false
}

func singleDriverBlockKind(curr, driver *ValueDriver) hdlast.ProceduralBlockKind {
	if curr.Source.IsSingleDriverProcedure() {
		return curr.Source.ProceduralBlockKind()
	}
	return driver.Source.ProceduralBlockKind()
}

// addCrossReferenceNotes attaches the "original assignment" note when
// either driver carries a procedural-call source range, and a
// FromHere note (naming both hierarchical paths) instead of a second
// source range when the two drivers share a start location (e.g. the
// same macro/template expansion).
func addCrossReferenceNotes(d *diag.Diagnostic, curr, driver *ValueDriver) {
	if curr.ProcCallRange != nil {
		d.AddNote(diag.NoteOriginalAssign, *curr.ProcCallRange)
	}
	if driver.ProcCallRange != nil {
		d.AddNote(diag.NoteOriginalAssign, *driver.ProcCallRange)
	}
	currRange := curr.PrefixExpression.SourceRange()
	driverRange := driver.PrefixExpression.SourceRange()
	if currRange.SameStart(driverRange) {
		d.AddNote(diag.NoteFromHere2, driverRange,
			hdlast.HierarchicalPath(curr.ContainingSymbol),
			hdlast.HierarchicalPath(driver.ContainingSymbol))
		return
	}
	d.AddNote(diag.NoteDrivenHere, currRange)
}
