package disasm

import "testing"

// makeInst creates a synthetic single-slot Inst.
func makeInst(addr uint64, text string) Inst {
	return Inst{Addr: addr, Raw: make([]byte, 8), Text: text}
}

func TestBuildCFG_Linear(t *testing.T) {
	insts := []Inst{
		makeInst(0, "r0 = 0x0"),
		makeInst(1, "r1 = r0"),
		makeInst(2, "exit"),
	}
	cfg := BuildCFG("linear", insts)
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	blk := cfg.Blocks[0]
	if blk.Start != 0 || blk.End != 3 {
		t.Errorf("block range = [%d,%d), want [0,3)", blk.Start, blk.End)
	}
	if !blk.IsTerm || !blk.IsEntry {
		t.Errorf("block = %+v, want entry and terminal", blk)
	}
	if len(blk.Succs) != 0 {
		t.Errorf("succs = %d, want 0", len(blk.Succs))
	}
}

func TestBuildCFG_ConditionalBranch(t *testing.T) {
	insts := []Inst{
		makeInst(0, "if r1 == 0x0 goto +0x3 <LBB0_4>"), // → slot 4
		makeInst(1, "r0 = 0x1"),
		makeInst(2, "exit"),
		makeInst(3, "r0 = 0x2"),
		makeInst(4, "exit"),
	}
	cfg := BuildCFG("cond", insts)

	// Leaders: 0 (entry), 1 (after if), 3 (after exit), 4 (branch target).
	if len(cfg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(cfg.Blocks))
	}

	b0 := cfg.Blocks[0]
	if len(b0.Succs) != 2 {
		t.Fatalf("block 0 succs = %d, want 2", len(b0.Succs))
	}
	var hasT, hasF bool
	for _, s := range b0.Succs {
		if s.Cond == "T" && s.BlockID == 3 {
			hasT = true
		}
		if s.Cond == "F" && s.BlockID == 1 {
			hasF = true
		}
	}
	if !hasT || !hasF {
		t.Errorf("block 0 succs = %+v, want T→3 and F→1", b0.Succs)
	}

	if !cfg.Blocks[1].IsTerm {
		t.Error("block 1 should be terminal (exit)")
	}
	b2 := cfg.Blocks[2]
	if b2.IsTerm || len(b2.Succs) != 1 || b2.Succs[0].BlockID != 3 {
		t.Errorf("block 2 = %+v, want fallthrough to 3", b2)
	}
	if !cfg.Blocks[3].IsTerm {
		t.Error("block 3 should be terminal (exit)")
	}
}

func TestBuildCFG_WideInstruction(t *testing.T) {
	lddw := Inst{Addr: 0, Raw: make([]byte, 16), Text: "r1 = 0x20000 ll"}
	insts := []Inst{
		lddw,                     // slots 0-1
		makeInst(2, "goto +0x1"), // slot 2 → slot 4
		makeInst(3, "r0 = 0x0"),  // slot 3
		makeInst(4, "exit"),      // slot 4
	}
	cfg := BuildCFG("wide", insts)
	if len(cfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(cfg.Blocks))
	}
	b0 := cfg.Blocks[0]
	if len(b0.Succs) != 1 || b0.Succs[0].BlockID != 2 || b0.Succs[0].Cond != "" {
		t.Errorf("block 0 succs = %+v, want unconditional → 2", b0.Succs)
	}
}

func TestBuildCFG_JumpOutOfFunction(t *testing.T) {
	insts := []Inst{
		makeInst(10, "r0 = 0x0"),
		makeInst(11, "goto +0x50"),
	}
	cfg := BuildCFG("tail", insts)
	last := cfg.Blocks[len(cfg.Blocks)-1]
	if !last.IsTerm {
		t.Errorf("block = %+v, want terminal", last)
	}
}

func TestBuildCFG_Empty(t *testing.T) {
	cfg := BuildCFG("empty", nil)
	if len(cfg.Blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(cfg.Blocks))
	}
}
