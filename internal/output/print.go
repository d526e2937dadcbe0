package output

import (
	"fmt"
	"io"

	"sbfre/internal/analysis"
	"sbfre/internal/elfx"
	"sbfre/internal/pubkey"
)

// PrintPrograms lists the label table with a category marker per row,
// followed by per-category totals.
func PrintPrograms(w io.Writer, labels pubkey.Labels) {
	for _, e := range ProgramEntries(labels) {
		marker := ""
		switch pubkey.Category(e.Category) {
		case pubkey.CategoryDEX:
			marker = " [DEX]"
		case pubkey.CategoryInfra:
			marker = " [INFRA]"
		case pubkey.CategoryUnknown:
			marker = " [?]"
		}
		fmt.Fprintf(w, "  %-45s %s%s\n", e.Label, e.Key, marker)
	}
	counts := labels.Counts()
	fmt.Fprintf(w, "\nTotal programs: %d\n", len(labels))
	fmt.Fprintf(w, "DEX: %d\n", counts[pubkey.CategoryDEX])
	fmt.Fprintf(w, "Infrastructure: %d\n", counts[pubkey.CategoryInfra])
	fmt.Fprintf(w, "Unknown: %d\n", counts[pubkey.CategoryUnknown])
}

// PrintSections lists the section table.
func PrintSections(w io.Writer, secs []elfx.Section) {
	fmt.Fprintf(w, "%-3s %-24s %-14s %-10s %-10s %-10s %s\n",
		"#", "Name", "Type", "Addr", "Offset", "Size", "Flags")
	for _, s := range secs {
		fmt.Fprintf(w, "%-3d %-24s %-14s 0x%08x 0x%08x 0x%08x %s\n",
			s.Index, s.Name, elfx.TypeName(s.Type), s.Addr, s.Offset, s.Size, elfx.FlagString(s.Flags))
	}
}

// PrintFunctions lists reconstructed functions with their callers.
func PrintFunctions(w io.Writer, funcs []analysis.Function) {
	fmt.Fprintf(w, "Functions: %d\n", len(funcs))
	for _, f := range funcs {
		entry := ""
		if f.IsEntry {
			entry = " (entry)"
		}
		fmt.Fprintf(w, "  %-12s [%6d, %6d]  insts=%-6d callers=%d%s\n",
			f.Name, f.Start, f.End, f.Count, len(f.Callers), entry)
	}
}

// PrintSyscalls lists every syscall target with its call count.
func PrintSyscalls(w io.Writer, syscalls []analysis.Syscall) {
	fmt.Fprintf(w, "Syscalls: %d\n", len(syscalls))
	for _, s := range syscalls {
		fmt.Fprintf(w, "  0x%04x  %-32s calls=%d\n", s.Addr, s.Name, len(s.Callers))
	}
}

// PrintStrings lists resolved string references.
func PrintStrings(w io.Writer, refs []analysis.StringRef) {
	fmt.Fprintf(w, "String references: %d\n", len(refs))
	for _, r := range refs {
		fmt.Fprintf(w, "  %6d  0x%x  %-12s %q\n", r.Addr, r.VA, r.Func, r.Value)
	}
}

// PrintDispatch lists dispatch comparison observations.
func PrintDispatch(w io.Writer, obs []analysis.Observation) {
	fmt.Fprintf(w, "Dispatch comparisons: %d\n", len(obs))
	for _, o := range obs {
		fmt.Fprintf(w, "  %6d  %-8s %s\n", o.Addr, o.Kind, o.Text)
	}
}

// PrintKeys lists extracted keys. Failed reads are shown inline.
func PrintKeys(w io.Writer, results []pubkey.Result, labels pubkey.Labels) {
	for _, e := range KeyEntries(results, labels) {
		switch {
		case e.Error != "":
			fmt.Fprintf(w, "%s: ERROR - %s\n", e.Addr, e.Error)
		case e.Label != "":
			fmt.Fprintf(w, "%s: %-44s %s [%s]\n", e.Addr, e.Key, e.Label, e.Category)
		default:
			fmt.Fprintf(w, "%s: %s\n", e.Addr, e.Key)
		}
	}
}
