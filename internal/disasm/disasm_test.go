package disasm

import (
	"strings"
	"testing"
)

const listing = `
program.so:	file format elf64-bpf

Disassembly of section .text:

0000000000000120 <entrypoint>:
      0: 85 10 00 00 01 00 00 00 call 0x64
      1: 18 01 00 00 a0 0d 02 00 00 00 00 00 00 00 00 00 r1 = 0x20da0 ll
      3: 95 00 00 00 00 00 00 00 exit
`

func TestParse(t *testing.T) {
	insts := ParseString(listing)
	if len(insts) != 3 {
		t.Fatalf("got %d instructions, want 3", len(insts))
	}
	if insts[0].Addr != 0 || insts[0].Text != "call 0x64" {
		t.Errorf("inst[0] = %+v", insts[0])
	}
	if got := insts[0].Hex(); got != "85 10 00 00 01 00 00 00" {
		t.Errorf("hex[0] = %q", got)
	}
	if len(insts[1].Raw) != 16 || insts[1].Slots() != 2 {
		t.Errorf("lddw raw = %d bytes, %d slots", len(insts[1].Raw), insts[1].Slots())
	}
	if insts[2].Addr != 3 || insts[2].Text != "exit" {
		t.Errorf("inst[2] = %+v", insts[2])
	}
}

func TestParseSkipsNoise(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(listing), "\n")

	var matched []string
	for _, l := range lines {
		if _, ok := ParseLine(l); ok {
			matched = append(matched, l)
		}
	}
	want := ParseString(strings.Join(matched, "\n"))

	// Reordering and dropping the non-matching lines must not change the result.
	var noise []string
	for _, l := range lines {
		if _, ok := ParseLine(l); !ok {
			noise = append(noise, l)
		}
	}
	shuffled := append([]string{noise[len(noise)-1]}, matched[0])
	shuffled = append(shuffled, noise[:len(noise)-1]...)
	shuffled = append(shuffled, matched[1:]...)
	got := ParseString(strings.Join(shuffled, "\n"))

	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Addr != want[i].Addr || got[i].Text != want[i].Text {
			t.Errorf("inst[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseLineRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"Disassembly of section .text:",
		"0000000000000120 <entrypoint>:",
		"12: exit",
		"0x10: 95 00 00 00 00 00 00 00 exit",
		"99999999999999999999999: 95 00 00 00 00 00 00 00 exit",
	} {
		if inst, ok := ParseLine(line); ok {
			t.Errorf("ParseLine(%q) = %+v, want no match", line, inst)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	insts, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 0 {
		t.Fatalf("got %d instructions for empty input", len(insts))
	}
}

func TestParseLongLine(t *testing.T) {
	long := "0: 95 00 00 00 00 00 00 00 " + strings.Repeat("x", maxLineSize+1)
	_, err := Parse(strings.NewReader(long))
	if err == nil {
		t.Fatal("expected scan error for oversized line")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	insts := ParseString(listing)
	again := ParseString(Format(insts, nil))
	if len(again) != len(insts) {
		t.Fatalf("round trip: got %d, want %d", len(again), len(insts))
	}
	for i := range insts {
		if again[i].Addr != insts[i].Addr || again[i].Hex() != insts[i].Hex() || again[i].Text != insts[i].Text {
			t.Errorf("inst[%d] = %+v, want %+v", i, again[i], insts[i])
		}
	}
}

func TestFormatSymbols(t *testing.T) {
	insts := ParseString(listing)
	text := Format(insts, PlaceholderLookup(map[uint64]string{0x64: "func_0064"}))
	if !strings.Contains(text, "call 0x64  ; <func_0064>") {
		t.Errorf("missing symbol in output: %s", text)
	}
	if Format(insts, nil) != Format(insts, nil) {
		t.Error("non-deterministic output")
	}
}
