package analysis

import "sbfre/internal/disasm"

// ObservationKind says which pattern produced an Observation.
type ObservationKind string

const (
	KindCmpImm  ObservationKind = "cmp-imm"  // if rN op 0x...
	KindCmpReg  ObservationKind = "cmp-reg"  // if rN op rM after a constant load
	KindImmLoad ObservationKind = "imm-load" // the load preceding a cmp-reg
)

// Observation is a matched listing line kept for manual inspection. It is
// a detection aid, not a decoded dispatch table.
type Observation struct {
	Addr uint64
	Text string
	Kind ObservationKind
}

// DispatchObservations scans the first window instructions (all of them if
// window <= 0) for comparisons against constants.
func DispatchObservations(insts []disasm.Inst, window int) []Observation {
	if window > 0 && window < len(insts) {
		insts = insts[:window]
	}
	var obs []Observation
	for i, inst := range insts {
		switch {
		case disasm.MatchCmpImm(inst.Text):
			obs = append(obs, Observation{Addr: inst.Addr, Text: inst.Text, Kind: KindCmpImm})
		case disasm.MatchCmpReg(inst.Text) && i > 0:
			prev := insts[i-1]
			if disasm.IsImmLoad(prev.Text) {
				obs = append(obs,
					Observation{Addr: prev.Addr, Text: prev.Text, Kind: KindImmLoad},
					Observation{Addr: inst.Addr, Text: inst.Text, Kind: KindCmpReg},
				)
			}
		}
	}
	return obs
}
