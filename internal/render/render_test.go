package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/zboralski/lattice"

	"sbfre/internal/analysis"
	"sbfre/internal/disasm"
)

func sampleGraph() ([]analysis.Function, *lattice.Graph) {
	funcs := []analysis.Function{
		{Name: "func_0024", Start: 36, End: 40, IsEntry: true},
		{Name: "func_0030", Start: 48, End: 49},
		{Name: "func_0040", Start: 64, End: 70},
	}
	g := &lattice.Graph{
		Nodes: []string{"func_0024", "func_0030", "func_0040", "sol_log_", "syscall_0x9999"},
		Edges: []lattice.Edge{
			{Caller: "func_0024", Callee: "func_0030"},
			{Caller: "func_0030", Callee: "sol_log_"},
			{Caller: "func_0040", Callee: "syscall_0x9999"},
			{Caller: "func_0040", Callee: "func_0030"},
		},
	}
	return funcs, g
}

func TestFindEntryPoints(t *testing.T) {
	funcs, g := sampleGraph()
	got := FindEntryPoints(funcs, g)
	want := []string{"func_0024", "func_0040"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("entry points = %v, want %v", got, want)
	}
}

func TestReachableSet(t *testing.T) {
	_, g := sampleGraph()
	r := ReachableSet([]string{"func_0024"}, g)
	for _, name := range []string{"func_0024", "func_0030", "sol_log_"} {
		if !r[name] {
			t.Errorf("%s should be reachable", name)
		}
	}
	if r["func_0040"] || r["syscall_0x9999"] {
		t.Errorf("reachable = %v", r)
	}
}

func TestReachabilityDOT(t *testing.T) {
	funcs, g := sampleGraph()
	entries := FindEntryPoints(funcs, g)
	dot := ReachabilityDOT(funcs, g, ReachableSet(entries, g), entries, "sample", NASA)

	if !strings.HasPrefix(dot, "digraph reachable {") || !strings.HasSuffix(dot, "}\n") {
		t.Fatalf("malformed DOT:\n%s", dot)
	}
	if !strings.Contains(dot, "subgraph cluster_syscalls") {
		t.Error("syscalls should be clustered")
	}
	for _, want := range []string{
		"n_func_0024 -> n_func_0030 [color=\"" + NASA.EdgeInternal + "\"]",
		"n_func_0030 -> n_sol_log_ [color=\"" + NASA.EdgeSyscall + "\"]",
		"n_func_0040 -> n_syscall_0x9999 [color=\"" + NASA.EdgeUnknown + "\"]",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in:\n%s", want, dot)
		}
	}
}

func TestReachabilityDOTUnrangedFunction(t *testing.T) {
	funcs := []analysis.Function{{Name: "func_0024", Start: 36, End: 40, IsEntry: true}}
	g := &lattice.Graph{
		Nodes: []string{"func_0024", "func_0200", "sol_log_"},
		Edges: []lattice.Edge{
			{Caller: "func_0024", Callee: "func_0200"},
			{Caller: "func_0024", Callee: "sol_log_"},
		},
	}
	entries := FindEntryPoints(funcs, g)
	dot := ReachabilityDOT(funcs, g, ReachableSet(entries, g), entries, "", NASA)

	cluster := dot[strings.Index(dot, "subgraph cluster_syscalls"):]
	cluster = cluster[:strings.Index(cluster, "}")]
	if strings.Contains(cluster, "n_func_0200") {
		t.Errorf("func_0200 placed in the syscalls cluster:\n%s", dot)
	}
	if !strings.Contains(cluster, "n_sol_log_") {
		t.Errorf("sol_log_ missing from the syscalls cluster:\n%s", dot)
	}
	want := "n_func_0024 -> n_func_0200 [color=\"" + NASA.EdgeInternal + "\"]"
	if !strings.Contains(dot, want) {
		t.Errorf("missing %q in:\n%s", want, dot)
	}
}

func TestCFGDOT(t *testing.T) {
	insts := []disasm.Inst{
		{Addr: 0, Raw: make([]byte, 8), Text: "if r1 == 0x0 goto +0x1"},
		{Addr: 1, Raw: make([]byte, 8), Text: "r0 = 0x1"},
		{Addr: 2, Raw: make([]byte, 8), Text: "exit"},
	}
	dot := CFGDOT(disasm.BuildCFG("func_0000", insts), NASA)
	for _, want := range []string{"bb0 -> bb2", "bb0 -> bb1", "0: if r1 == 0x0 goto +0x1"} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in:\n%s", want, dot)
		}
	}
	if CFGDOT(disasm.FuncCFG{Name: "empty"}, NASA) != "" {
		t.Error("empty CFG should render nothing")
	}
}

func TestDotID(t *testing.T) {
	if got := dotID("sol_alloc_free_ (heap alloc)"); strings.ContainsAny(got, " ()") {
		t.Errorf("dotID = %q", got)
	}
	if got := truncLabel(strings.Repeat("a", 60), 50); len(got) != 50 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncLabel = %q", got)
	}
	if got := truncLabel(strings.Repeat("ж", 60), 50); !utf8.ValidString(got) || utf8.RuneCountInString(got) != 50 {
		t.Errorf("truncLabel = %q", got)
	}
}
