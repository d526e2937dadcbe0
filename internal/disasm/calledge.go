package disasm

// CallEdge is one "call 0xT" site.
type CallEdge struct {
	FromPC   uint64 `json:"from_pc"`
	TargetPC uint64 `json:"target_pc"`
}

// ExtractCallEdges returns every call site in stream order.
func ExtractCallEdges(insts []Inst) []CallEdge {
	var edges []CallEdge
	for _, inst := range insts {
		if target, ok := MatchCall(inst.Text); ok {
			edges = append(edges, CallEdge{FromPC: inst.Addr, TargetPC: target})
		}
	}
	return edges
}

// ExitAddrs returns the address of every exit instruction in stream order.
func ExitAddrs(insts []Inst) []uint64 {
	var addrs []uint64
	for _, inst := range insts {
		if IsExit(inst.Text) {
			addrs = append(addrs, inst.Addr)
		}
	}
	return addrs
}
