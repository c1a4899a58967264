package facts

// FilterTablesByFiles returns a new Tables containing only rows whose
// file is present in the provided file set.
func FilterTablesByFiles(tables Tables, files map[string]bool) Tables {
	if len(files) == 0 {
		return emptyTables()
	}
	out := emptyTables()

	for _, row := range tables.Modules {
		if files[row.File] {
			out.Modules = append(out.Modules, row)
		}
	}
	for _, row := range tables.Instances {
		if files[row.File] {
			out.Instances = append(out.Instances, row)
		}
	}
	for _, row := range tables.Ports {
		if files[row.File] {
			out.Ports = append(out.Ports, row)
		}
	}
	for _, row := range tables.Signals {
		if files[row.File] {
			out.Signals = append(out.Signals, row)
		}
	}
	for _, row := range tables.Procedures {
		if files[row.File] {
			out.Procedures = append(out.Procedures, row)
		}
	}
	for _, row := range tables.Connections {
		if files[row.File] {
			out.Connections = append(out.Connections, row)
		}
	}
	for _, row := range tables.Diagnostics {
		if files[row.File] {
			out.Diagnostics = append(out.Diagnostics, row)
		}
	}

	return out
}

// FilterDeltaByFiles returns a new Delta containing only rows for the
// specified files.
func FilterDeltaByFiles(delta Delta, files map[string]bool) Delta {
	if len(files) == 0 {
		return Delta{Added: emptyTables(), Removed: emptyTables()}
	}
	return Delta{
		Added:   FilterTablesByFiles(delta.Added, files),
		Removed: FilterTablesByFiles(delta.Removed, files),
	}
}
