package analysis

import (
	"fmt"
	"sort"

	"sbfre/internal/disasm"
)

// Function is a reconstructed function range. Ranges come from a heuristic
// (see FunctionRanges) and may not match the compiled layout exactly.
type Function struct {
	Name    string
	Start   uint64
	End     uint64 // inclusive
	Count   int    // instructions in [Start, End]
	Callers []uint64
	IsEntry bool
}

// FuncPrefix starts every placeholder function name.
const FuncPrefix = "func_"

// FunctionName is the placeholder name for a function starting at addr.
func FunctionName(addr uint64) string {
	return fmt.Sprintf("%s%04x", FuncPrefix, addr)
}

// FunctionRanges partitions the instruction stream into functions.
//
// Boundaries are the entry address plus every internal call target, sorted.
// Boundaries past the last instruction are dropped. A function ends at the
// last exit before the next boundary, or right before the next boundary if
// it has no exit. Tail calls and fallthrough across boundaries are not
// detected.
func FunctionRanges(insts []disasm.Inst, cg CallGraph, exits []uint64, opts Options) []Function {
	if len(insts) == 0 {
		return nil
	}
	last := insts[len(insts)-1].Addr

	internal, _ := Partition(cg.Targets, opts.SyscallThreshold)
	starts := []uint64{opts.EntryAddr}
	starts = append(starts, internal...)
	starts = uniqueSorted(starts)
	for len(starts) > 0 && starts[len(starts)-1] > last {
		starts = starts[:len(starts)-1]
	}

	sortedExits := append([]uint64(nil), exits...)
	sortAddrs(sortedExits)

	funcs := make([]Function, 0, len(starts))
	for i, start := range starts {
		next := last + 1
		if i+1 < len(starts) {
			next = starts[i+1]
		}

		end := next - 1
		// Last exit strictly below next.
		if j := sort.Search(len(sortedExits), func(k int) bool { return sortedExits[k] >= next }); j > 0 {
			if e := sortedExits[j-1]; e >= start {
				end = e
			}
		}

		var callers []uint64
		if c := cg.Callers[start]; len(c) > 0 {
			callers = append(callers, c...)
		}
		funcs = append(funcs, Function{
			Name:    FunctionName(start),
			Start:   start,
			End:     end,
			Count:   countInRange(insts, start, end),
			Callers: callers,
			IsEntry: start == opts.EntryAddr,
		})
	}
	return funcs
}

// countInRange counts instructions with lo <= Addr <= hi. Addresses are
// non-decreasing.
func countInRange(insts []disasm.Inst, lo, hi uint64) int {
	from := sort.Search(len(insts), func(i int) bool { return insts[i].Addr >= lo })
	to := sort.Search(len(insts), func(i int) bool { return insts[i].Addr > hi })
	if to < from {
		return 0
	}
	return to - from
}

// InstsInRange returns the instructions of f.
func InstsInRange(insts []disasm.Inst, f Function) []disasm.Inst {
	from := sort.Search(len(insts), func(i int) bool { return insts[i].Addr >= f.Start })
	to := sort.Search(len(insts), func(i int) bool { return insts[i].Addr > f.End })
	if to < from {
		return nil
	}
	return insts[from:to]
}

// FunctionAt returns the first function whose range contains addr.
func FunctionAt(funcs []Function, addr uint64) (Function, bool) {
	for _, f := range funcs {
		if f.Start <= addr && addr <= f.End {
			return f, true
		}
	}
	return Function{}, false
}

func uniqueSorted(a []uint64) []uint64 {
	sortAddrs(a)
	out := a[:0]
	for _, v := range a {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
