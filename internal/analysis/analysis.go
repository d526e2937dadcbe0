// Package analysis rebuilds program structure from a parsed SBF listing:
// the call graph, syscall usage, function ranges, dispatch comparisons and
// string references.
//
// Every scan is best-effort pattern matching. A line that matches nothing
// is skipped; only invalid options are reported as errors.
package analysis

import (
	"errors"
	"fmt"

	"sbfre/internal/disasm"
	"sbfre/internal/elfx"
)

// Options tunes the analysis passes.
type Options struct {
	EntryAddr        uint64 // designated entrypoint, always a function start
	SyscallThreshold uint64 // call targets at or above this are syscalls
	DispatchWindow   int    // instructions scanned for dispatch compares; <= 0 means all
	StringSection    string
	StringMinLen     int // strings must be longer than this
	StringMaxScan    int // bytes scanned for the NUL terminator
	Syscalls         map[uint64]string
}

// DefaultOptions returns the thresholds used for Solana BPF programs.
func DefaultOptions() Options {
	return Options{
		EntryAddr:        36,
		SyscallThreshold: 0x2000,
		DispatchWindow:   800,
		StringSection:    ".rodata",
		StringMinLen:     3,
		StringMaxScan:    200,
	}
}

var ErrOptions = errors.New("analysis: invalid options")

// Validate rejects option values no pass can work with.
func (o Options) Validate() error {
	switch {
	case o.StringSection == "":
		return fmt.Errorf("%w: empty string section", ErrOptions)
	case o.StringMaxScan <= 0:
		return fmt.Errorf("%w: string max scan %d", ErrOptions, o.StringMaxScan)
	case o.StringMinLen < 0:
		return fmt.Errorf("%w: string min length %d", ErrOptions, o.StringMinLen)
	}
	return nil
}

// Result is everything one analysis run produces. It is built once and
// treated as read-only afterwards.
type Result struct {
	Instructions int
	Sections     []elfx.Section
	Fingerprint  string
	CallGraph    CallGraph
	Exits        []uint64
	Internal     []uint64
	Syscalls     []Syscall
	Functions    []Function
	Dispatch     []Observation
	Strings      []StringRef
}

// Analyze runs every pass. img may be nil, in which case no section table
// is reported and string references are skipped.
func Analyze(img *elfx.Image, insts []disasm.Inst, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cg := BuildCallGraph(insts)
	exits := disasm.ExitAddrs(insts)
	internal, sys := Partition(cg.Targets, opts.SyscallThreshold)
	funcs := FunctionRanges(insts, cg, exits, opts)

	res := &Result{
		Instructions: len(insts),
		CallGraph:    cg,
		Exits:        exits,
		Internal:     internal,
		Syscalls:     syscallsUsed(cg, sys, opts.Syscalls),
		Functions:    funcs,
		Dispatch:     DispatchObservations(insts, opts.DispatchWindow),
		Strings:      StringRefs(img, insts, funcs, opts),
	}
	if img != nil {
		res.Sections = img.Sections()
		res.Fingerprint = img.Fingerprint()
	}
	return res, nil
}

// TargetName names a call target: a function name for internal targets,
// the syscall label for runtime targets.
func (o Options) TargetName(addr uint64) string {
	if addr < o.SyscallThreshold {
		return FunctionName(addr)
	}
	return SyscallName(o.Syscalls, addr)
}
