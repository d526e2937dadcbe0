// Package disasm parses textual SBF disassembly listings.
//
// A listing line looks like
//
//	   36: 79 16 00 00 00 00 00 00 r6 = *(u64 *)(r1 + 0x0)
//
// that is a decimal instruction address, the raw encoding as space-separated
// byte pairs, and the mnemonic text. Lines that do not have this shape
// (section banners, labels, blank lines) are skipped.
package disasm

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Inst is one parsed listing line.
type Inst struct {
	Addr uint64
	Raw  []byte
	Text string // mnemonic and operands
}

// Hex renders the raw bytes the way the listing prints them.
func (i Inst) Hex() string {
	var b strings.Builder
	for n, c := range i.Raw {
		if n > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

// Slots returns the number of 8-byte instruction slots the encoding covers.
// lddw is the only 16-byte instruction.
func (i Inst) Slots() int {
	if n := len(i.Raw) / 8; n > 1 {
		return n
	}
	return 1
}

var lineRe = regexp.MustCompile(`^(\d+):\s+((?:[0-9a-f]{2}\s)+)\s*(.*)`)

const maxLineSize = 1 << 20

// ParseLine parses a single listing line.
func ParseLine(line string) (Inst, bool) {
	m := lineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Inst{}, false
	}
	addr, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Inst{}, false
	}
	raw, err := hex.DecodeString(strings.Join(strings.Fields(m[2]), ""))
	if err != nil {
		return Inst{}, false
	}
	return Inst{Addr: addr, Raw: raw, Text: strings.TrimSpace(m[3])}, true
}

// Parse reads a listing and returns its instructions in source order.
// Only read errors are returned; malformed lines are skipped.
func Parse(r io.Reader) ([]Inst, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var insts []Inst
	for sc.Scan() {
		if inst, ok := ParseLine(sc.Text()); ok {
			insts = append(insts, inst)
		}
	}
	if err := sc.Err(); err != nil {
		return insts, fmt.Errorf("disasm: scan: %w", err)
	}
	return insts, nil
}

// ParseString parses an in-memory listing.
func ParseString(s string) []Inst {
	insts, _ := Parse(strings.NewReader(s))
	return insts
}

// SymbolLookup resolves an address to a symbolic name. Returns ("", false) if unknown.
type SymbolLookup func(addr uint64) (name string, ok bool)

// Format renders instructions back into listing form. Calls whose target
// resolves through lookup get a "; <name>" comment.
func Format(insts []Inst, lookup SymbolLookup) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "%6d: %s %s", inst.Addr, inst.Hex(), inst.Text)
		if lookup != nil {
			if target, ok := MatchCall(inst.Text); ok {
				if name, ok := lookup(target); ok {
					fmt.Fprintf(&b, "  ; <%s>", name)
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// PlaceholderLookup returns a SymbolLookup backed by a fixed map.
func PlaceholderLookup(names map[uint64]string) SymbolLookup {
	return func(addr uint64) (string, bool) {
		if name, ok := names[addr]; ok {
			return name, true
		}
		return "", false
	}
}
