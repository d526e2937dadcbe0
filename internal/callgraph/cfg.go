package callgraph

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/zboralski/lattice"

	"sbfre/internal/analysis"
	"sbfre/internal/disasm"
)

// BuildCFG constructs a lattice.CFGGraph from reconstructed functions.
// Each FuncInfo is converted via disasm.BuildCFG and then mapped to lattice
// types, with call sites placed in the blocks that contain them.
func BuildCFG(funcs []FuncInfo, opts analysis.Options) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		lcfg, _ := BuildFuncCFG(f.Name, f.Insts, opts)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG builds a single-function lattice.FuncCFG.
// Returns the FuncCFG and the number of basic blocks (for filtering trivial functions).
func BuildFuncCFG(name string, insts []disasm.Inst, opts analysis.Options) (*lattice.FuncCFG, int) {
	dcfg := disasm.BuildCFG(name, insts)
	return convertFuncCFG(&dcfg, opts), len(dcfg.Blocks)
}

// injectStringRefs adds string reference CallSite entries into the blocks
// holding the referencing instruction.
func injectStringRefs(lcfg *lattice.FuncCFG, dcfg *disasm.FuncCFG, refs map[uint64]string) {
	if len(refs) == 0 {
		return
	}
	for bi, db := range dcfg.Blocks {
		added := false
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			if val, ok := refs[dcfg.Insts[idx].Addr]; ok {
				val = truncate(val, 50)
				lcfg.Blocks[bi].Calls = append(lcfg.Blocks[bi].Calls, lattice.CallSite{
					Offset: idx,
					Callee: fmt.Sprintf("%q", val),
				})
				added = true
			}
		}
		if added {
			sort.Slice(lcfg.Blocks[bi].Calls, func(i, j int) bool {
				return lcfg.Blocks[bi].Calls[i].Offset < lcfg.Blocks[bi].Calls[j].Offset
			})
		}
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// BuildStringCFG is BuildFuncCFG with string references shown as call sites.
func BuildStringCFG(name string, insts []disasm.Inst, refs []analysis.StringRef, opts analysis.Options) (*lattice.FuncCFG, int) {
	byAddr := make(map[uint64]string, len(refs))
	for _, r := range refs {
		byAddr[r.Addr] = r.Value
	}
	dcfg := disasm.BuildCFG(name, insts)
	lcfg := convertFuncCFG(&dcfg, opts)
	injectStringRefs(lcfg, &dcfg, byAddr)
	return lcfg, len(dcfg.Blocks)
}

// convertFuncCFG maps a disasm.FuncCFG to a lattice.FuncCFG.
func convertFuncCFG(dcfg *disasm.FuncCFG, opts analysis.Options) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: dcfg.Name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    db.ID,
			Start: db.Start,
			End:   db.End,
			Term:  db.IsTerm,
		}

		for _, ds := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: ds.BlockID,
				Cond:    ds.Cond,
			})
		}

		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			if target, ok := disasm.MatchCall(dcfg.Insts[idx].Text); ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idx,
					Callee: calleeName(target, opts),
				})
			}
		}

		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
