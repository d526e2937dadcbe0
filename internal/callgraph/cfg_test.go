package callgraph

import (
	"strings"
	"testing"

	"github.com/zboralski/lattice/render"

	"sbfre/internal/analysis"
	"sbfre/internal/disasm"
)

func inst(addr uint64, text string) disasm.Inst {
	return disasm.Inst{Addr: addr, Raw: make([]byte, 8), Text: text}
}

func testOptions() analysis.Options {
	opts := analysis.DefaultOptions()
	opts.EntryAddr = 100
	opts.Syscalls = map[uint64]string{0x2d0d: "sol_log_"}
	return opts
}

func TestBuildCFG_DOTOutput(t *testing.T) {
	// entry (B0):
	//   100: r1 = 0x0
	//   101: call 0x30
	//   102: if r1 == 0x0 goto +0x3   ; → B2
	//
	// true path (B1):
	//   103: r2 = 0x1
	//   104: call 0x2d0d              ; sol_log_
	//   105: goto +0x2                ; → B3
	//
	// false path (B2):
	//   106: call 0x9999              ; unmapped syscall
	//   107: exit
	//
	// join (B3):
	//   108: exit
	insts := []disasm.Inst{
		inst(100, "r1 = 0x0"),
		inst(101, "call 0x30"),
		inst(102, "if r1 == 0x0 goto +0x3 <LBB0_6>"),
		inst(103, "r2 = 0x1"),
		inst(104, "call 0x2d0d"),
		inst(105, "goto +0x2 <LBB0_8>"),
		inst(106, "call 0x9999"),
		inst(107, "exit"),
		inst(108, "exit"),
	}

	funcs := []FuncInfo{{Name: "func_0064", Insts: insts}}
	cfg := BuildCFG(funcs, testOptions())

	if len(cfg.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(cfg.Funcs))
	}
	f := cfg.Funcs[0]
	if f.Name != "func_0064" {
		t.Errorf("func name = %q", f.Name)
	}
	if len(f.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(f.Blocks))
	}

	// B0: one internal call, two successors (T→B2, F→B1)
	b0 := f.Blocks[0]
	if len(b0.Calls) != 1 || b0.Calls[0].Callee != "func_0030" {
		t.Errorf("B0 calls = %+v", b0.Calls)
	}
	if len(b0.Succs) != 2 || b0.Succs[0].BlockID != 2 || b0.Succs[0].Cond != "T" {
		t.Errorf("B0 succs = %+v", b0.Succs)
	}

	// B1: mapped syscall, unconditional jump to B3
	b1 := f.Blocks[1]
	if len(b1.Calls) != 1 || b1.Calls[0].Callee != "sol_log_" {
		t.Errorf("B1 calls = %+v", b1.Calls)
	}
	if len(b1.Succs) != 1 || b1.Succs[0].BlockID != 3 {
		t.Errorf("B1 succs = %+v", b1.Succs)
	}

	// B2: unmapped syscall keeps its address, terminal
	b2 := f.Blocks[2]
	if len(b2.Calls) != 1 || b2.Calls[0].Callee != "syscall_0x9999" {
		t.Errorf("B2 calls = %+v", b2.Calls)
	}
	if !b2.Term {
		t.Error("B2 should be terminal")
	}

	if !f.Blocks[3].Term {
		t.Error("B3 should be terminal")
	}

	dot := render.DOTCFG(cfg, "sbfre CFG")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestBuildStringCFG(t *testing.T) {
	insts := []disasm.Inst{
		{Addr: 100, Raw: make([]byte, 16), Text: "r1 = 0x20d80 ll"},
		inst(102, "call 0x2d0d"),
		inst(103, "exit"),
	}
	refs := []analysis.StringRef{{Addr: 100, VA: 0x20d80, Value: strings.Repeat("x", 60)}}

	f, n := BuildStringCFG("func_0064", insts, refs, testOptions())
	if n != 1 {
		t.Fatalf("blocks = %d, want 1", n)
	}
	calls := f.Blocks[0].Calls
	if len(calls) != 2 {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].Offset != 0 || !strings.HasSuffix(calls[0].Callee, `..."`) {
		t.Errorf("string ref = %+v", calls[0])
	}
	if calls[1].Callee != "sol_log_" {
		t.Errorf("call = %+v", calls[1])
	}
}

func TestBuildStringCFG_TruncatesOnRuneBoundary(t *testing.T) {
	insts := []disasm.Inst{
		{Addr: 0, Raw: make([]byte, 16), Text: "r1 = 0x20d80 ll"},
		inst(2, "exit"),
	}
	refs := []analysis.StringRef{{Addr: 0, VA: 0x20d80, Value: strings.Repeat("é", 60)}}

	f, _ := BuildStringCFG("func_0000", insts, refs, testOptions())
	calls := f.Blocks[0].Calls
	if len(calls) != 1 {
		t.Fatalf("calls = %+v", calls)
	}
	got := calls[0].Callee
	if strings.Contains(got, `\x`) || strings.Count(got, "é") != 47 || !strings.HasSuffix(got, `..."`) {
		t.Errorf("label = %s", got)
	}
}

func TestBuildCallGraph_DOTOutput(t *testing.T) {
	insts := []disasm.Inst{
		inst(100, "call 0x70"),
		inst(101, "call 0x2d0d"),
		inst(102, "exit"),
		inst(103, "call 0x2d0d"), // outside every function
		inst(112, "call 0x2d0d"),
		inst(113, "call 0x9999"),
		inst(114, "exit"),
	}
	opts := testOptions()
	res, err := analysis.Analyze(nil, insts, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Functions) != 2 {
		t.Fatalf("functions = %+v", res.Functions)
	}

	cg := BuildCallGraph(res, opts)

	wantNodes := []string{"func_0064", "func_0070", "sol_log_", "syscall_0x9999", "unknown"}
	if len(cg.Nodes) != len(wantNodes) {
		t.Fatalf("nodes = %v, want %v", cg.Nodes, wantNodes)
	}
	have := make(map[string]bool)
	for _, n := range cg.Nodes {
		have[n] = true
	}
	for _, n := range wantNodes {
		if !have[n] {
			t.Errorf("missing node %q in %v", n, cg.Nodes)
		}
	}

	edges := make(map[string]bool)
	for _, e := range cg.Edges {
		edges[e.Caller+"->"+e.Callee] = true
	}
	for _, e := range []string{
		"func_0064->func_0070",
		"func_0064->sol_log_",
		"unknown->sol_log_",
		"func_0070->sol_log_",
		"func_0070->syscall_0x9999",
	} {
		if !edges[e] {
			t.Errorf("missing edge %s", e)
		}
	}

	dot := render.DOT(cg, "sbfre call graph")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestFuncs(t *testing.T) {
	insts := []disasm.Inst{
		inst(100, "call 0x70"),
		inst(101, "exit"),
		inst(112, "r0 = 0x0"),
		inst(113, "exit"),
	}
	res, err := analysis.Analyze(nil, insts, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	funcs := Funcs(res, insts)
	if len(funcs) != 2 {
		t.Fatalf("funcs = %d, want 2", len(funcs))
	}
	if funcs[1].Name != "func_0070" || len(funcs[1].Insts) != 2 {
		t.Errorf("funcs[1] = %+v", funcs[1])
	}
}
