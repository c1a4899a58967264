package facts

// Delta captures added and removed fact rows between two snapshots,
// the unit an incremental re-lint reports to a caller that only wants
// to know what changed.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two
// snapshots of the same design.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Modules = diffRows(from.Modules, to.Modules, func(r ModuleRow) string {
		return r.Name + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return r.Label + "|" + r.Template + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return r.Module + "|" + r.Name + "|" + r.Direction + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Signals = diffRows(from.Signals, to.Signals, func(r SignalRow) string {
		return r.Module + "|" + r.Name + "|" + r.Kind + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Procedures = diffRows(from.Procedures, to.Procedures, func(r ProcedureRow) string {
		return r.Module + "|" + r.Kind + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Connections = diffRows(from.Connections, to.Connections, func(r ConnectionRow) string {
		return r.Instance + "|" + r.Port + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Diagnostics = diffRows(from.Diagnostics, to.Diagnostics, func(r DiagnosticRow) string {
		return r.Code + "|" + r.Symbol + "|" + r.File + "|" + intKey(r.Line)
	})

	return out
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]T, len(from))
	for _, row := range from {
		fromSet[key(row)] = row
	}
	var diff []T
	for _, row := range to {
		rowKey := key(row)
		if _, ok := fromSet[rowKey]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func intKey(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
