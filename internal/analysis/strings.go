package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"sbfre/internal/disasm"
	"sbfre/internal/elfx"
)

// UnknownFunc tags references outside every function range.
const UnknownFunc = "unknown"

// StringRef is an lddw whose immediate points at a string in the data section.
type StringRef struct {
	Addr  uint64 // instruction address
	VA    uint64 // referenced virtual address
	Value string
	Hex   bool // Value is the hex rendering of non-UTF-8 bytes
	Func  string
}

// StringRefs resolves every "rN = 0x... ll" whose immediate lies in the
// configured data section. Candidates that fail to translate, are not
// printable, or are not longer than StringMinLen are dropped.
func StringRefs(img *elfx.Image, insts []disasm.Inst, funcs []Function, opts Options) []StringRef {
	if img == nil {
		return nil
	}
	sec, err := img.Section(opts.StringSection)
	if err != nil {
		return nil
	}

	var refs []StringRef
	for _, inst := range insts {
		_, imm, ok := disasm.MatchLoadImm64(inst.Text)
		if !ok || !sec.Contains(imm) {
			continue
		}
		txt, err := img.ReadCString(sec, imm, opts.StringMaxScan)
		if err != nil {
			continue
		}
		if utf8.RuneCountInString(txt.Value) <= opts.StringMinLen || !printable(txt.Value) {
			continue
		}
		fn := UnknownFunc
		if f, ok := FunctionAt(funcs, inst.Addr); ok {
			fn = f.Name
		}
		refs = append(refs, StringRef{
			Addr:  inst.Addr,
			VA:    imm,
			Value: txt.Value,
			Hex:   txt.Hex,
			Func:  fn,
		})
	}
	return refs
}

func printable(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsPrint(r) }) < 0
}
