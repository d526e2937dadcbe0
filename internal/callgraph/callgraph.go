// Package callgraph converts analysis results into lattice graphs.
package callgraph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"sbfre/internal/analysis"
	"sbfre/internal/disasm"
)

// BuildCallGraph constructs a lattice.Graph from an analysis result.
// Nodes are the reconstructed functions plus every syscall that is called.
// Each call site becomes an edge from its enclosing function to the callee;
// call sites outside every function range are attributed to "unknown".
func BuildCallGraph(res *analysis.Result, opts analysis.Options) *lattice.Graph {
	g := &lattice.Graph{}
	seen := make(map[string]bool)
	addNode := func(name string) {
		if !seen[name] {
			seen[name] = true
			g.Nodes = append(g.Nodes, name)
		}
	}
	for _, f := range res.Functions {
		addNode(f.Name)
	}
	for _, s := range res.Syscalls {
		addNode(calleeName(s.Addr, opts))
	}

	for _, target := range res.CallGraph.Targets {
		callee := calleeName(target, opts)
		addNode(callee)
		for _, from := range res.CallGraph.Callers[target] {
			caller := analysis.UnknownFunc
			if f, ok := analysis.FunctionAt(res.Functions, from); ok {
				caller = f.Name
			}
			addNode(caller)
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: caller,
				Callee: callee,
			})
		}
	}
	g.Dedup()
	return g
}

// UnmappedPrefix starts the node name of every unmapped syscall.
const UnmappedPrefix = "syscall_"

// calleeName is opts.TargetName, except that unmapped syscalls keep their
// address so they stay distinct nodes.
func calleeName(addr uint64, opts analysis.Options) string {
	name := opts.TargetName(addr)
	if name == analysis.UnknownSyscall && addr >= opts.SyscallThreshold {
		return fmt.Sprintf("%s0x%x", UnmappedPrefix, addr)
	}
	return name
}

// FuncInfo holds the data needed to build the CFG for one function.
type FuncInfo struct {
	Name  string
	Insts []disasm.Inst
}

// Funcs slices the instruction stream into one FuncInfo per function range.
func Funcs(res *analysis.Result, insts []disasm.Inst) []FuncInfo {
	out := make([]FuncInfo, 0, len(res.Functions))
	for _, f := range res.Functions {
		out = append(out, FuncInfo{Name: f.Name, Insts: analysis.InstsInRange(insts, f)})
	}
	return out
}
