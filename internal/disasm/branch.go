package disasm

import (
	"strconv"
	"strings"
)

// BranchInfo describes a control transfer recognised in the listing.
type BranchInfo struct {
	Offset int64 // target = slot after the branch + Offset, in instruction slots
	Cond   bool  // true if conditional (has fallthrough)
	IsRet  bool  // true for exit
}

// DecodeBranch recognises "exit", "goto ±N" and "if ... goto ±N".
// Returns nil if the instruction is not a branch.
// Calls are not branches: they return to the next instruction.
func DecodeBranch(inst Inst) *BranchInfo {
	if IsExit(inst.Text) {
		return &BranchInfo{IsRet: true}
	}
	m := gotoRe.FindStringSubmatch(inst.Text)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseInt(m[2], 0, 64)
	if err != nil {
		return nil
	}
	if m[1] == "-" {
		n = -n
	}
	return &BranchInfo{
		Offset: n,
		Cond:   strings.HasPrefix(inst.Text, "if "),
	}
}
