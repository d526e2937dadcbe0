package analysis

import (
	"sort"

	"sbfre/internal/disasm"
)

// CallGraph maps call targets to the addresses that call them.
type CallGraph struct {
	Targets []uint64            // distinct targets, first-seen order
	Callers map[uint64][]uint64 // target → caller addresses, stream order
}

// BuildCallGraph collects every "call 0xT" site.
func BuildCallGraph(insts []disasm.Inst) CallGraph {
	cg := CallGraph{Callers: make(map[uint64][]uint64)}
	for _, e := range disasm.ExtractCallEdges(insts) {
		if _, seen := cg.Callers[e.TargetPC]; !seen {
			cg.Targets = append(cg.Targets, e.TargetPC)
		}
		cg.Callers[e.TargetPC] = append(cg.Callers[e.TargetPC], e.FromPC)
	}
	return cg
}

// CallCount returns how many call sites target addr.
func (cg CallGraph) CallCount(addr uint64) int {
	return len(cg.Callers[addr])
}

// Partition splits targets into internal functions (below threshold) and
// runtime syscalls (at or above it). Both slices are sorted.
func Partition(targets []uint64, threshold uint64) (internal, syscalls []uint64) {
	for _, t := range targets {
		if t < threshold {
			internal = append(internal, t)
		} else {
			syscalls = append(syscalls, t)
		}
	}
	sortAddrs(internal)
	sortAddrs(syscalls)
	return internal, syscalls
}

// UnknownSyscall labels syscall addresses missing from the table.
const UnknownSyscall = "unknown"

// SyscallName looks addr up in table.
func SyscallName(table map[uint64]string, addr uint64) string {
	if name, ok := table[addr]; ok {
		return name
	}
	return UnknownSyscall
}

// Syscall is one runtime call target.
type Syscall struct {
	Addr    uint64
	Name    string
	Known   bool
	Callers []uint64
}

func syscallsUsed(cg CallGraph, addrs []uint64, table map[uint64]string) []Syscall {
	out := make([]Syscall, 0, len(addrs))
	for _, a := range addrs {
		_, known := table[a]
		out = append(out, Syscall{
			Addr:    a,
			Name:    SyscallName(table, a),
			Known:   known,
			Callers: cg.Callers[a],
		})
	}
	return out
}

func sortAddrs(a []uint64) {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
}
