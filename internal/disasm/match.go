package disasm

import (
	"regexp"
	"strconv"
	"strings"
)

// Text patterns recognised in the mnemonic column. Anything else is not
// classified; a miss is never an error.
var (
	callRe   = regexp.MustCompile(`^call (0x[0-9a-f]+)`)
	lddwRe   = regexp.MustCompile(`^r(\d+) = (0x[0-9a-f]+) ll`)
	movImmRe = regexp.MustCompile(`^r\d+ = 0x`)
	cmpImmRe = regexp.MustCompile(`if r\d+ [!=<>]+ 0x[0-9a-f]+`)
	cmpRegRe = regexp.MustCompile(`if r\d+ [!=<>]+ r\d+`)
	gotoRe   = regexp.MustCompile(`goto ([+-])(0x[0-9a-f]+|\d+)`)
)

// MatchCall recognises "call 0xT" and returns T.
func MatchCall(text string) (target uint64, ok bool) {
	m := callRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	target, err := strconv.ParseUint(m[1][2:], 16, 64)
	if err != nil {
		return 0, false
	}
	return target, true
}

// IsExit reports whether text is a bare "exit".
func IsExit(text string) bool {
	return text == "exit"
}

// MatchLoadImm64 recognises "rN = 0x... ll" (lddw) and returns N and the immediate.
func MatchLoadImm64(text string) (reg int, imm uint64, ok bool) {
	m := lddwRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	reg, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	imm, err = strconv.ParseUint(m[2][2:], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	return reg, imm, true
}

// MatchCmpImm recognises a register compared against an immediate.
func MatchCmpImm(text string) bool {
	return cmpImmRe.MatchString(text)
}

// MatchCmpReg recognises a register compared against another register.
func MatchCmpReg(text string) bool {
	return cmpRegRe.MatchString(text)
}

// IsImmLoad recognises an instruction that puts a constant in a register,
// either lddw or a plain "rN = 0x..." move.
func IsImmLoad(text string) bool {
	return strings.HasSuffix(text, " ll") || movImmRe.MatchString(text)
}
