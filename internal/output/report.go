package output

import (
	"fmt"
	"strconv"

	"sbfre/internal/analysis"
	"sbfre/internal/pubkey"
)

// Report is the JSON summary of one analysis run. Addresses are rendered
// as 0x-prefixed hex except function bounds, which stay numeric.
type Report struct {
	TotalInstructions int                     `json:"total_instructions"`
	BinaryHash        string                  `json:"binary_hash,omitempty"`
	ELFSections       map[string]SectionEntry `json:"elf_sections"`
	Functions         []FunctionEntry         `json:"functions"`
	SyscallsUsed      map[string]SyscallEntry `json:"syscalls_used"`
	StringReferences  map[string]StringEntry  `json:"string_references"`
	Dispatch          []DispatchEntry         `json:"dispatch,omitempty"`
	PublicKeys        []KeyEntry              `json:"public_keys,omitempty"`
}

// SectionEntry is one non-empty ELF section.
type SectionEntry struct {
	Offset string `json:"offset"`
	Size   string `json:"size"`
	Addr   string `json:"addr"`
}

// FunctionEntry is one reconstructed function.
type FunctionEntry struct {
	Name             string   `json:"name"`
	Start            uint64   `json:"start"`
	End              uint64   `json:"end"`
	InstructionCount int      `json:"instruction_count"`
	Callers          []string `json:"callers"`
}

// SyscallEntry is one mapped syscall and how often it is called.
type SyscallEntry struct {
	Name      string `json:"name"`
	CallCount int    `json:"call_count"`
}

// StringEntry is one resolved string reference.
type StringEntry struct {
	RodataAddr string `json:"rodata_addr"`
	String     string `json:"string"`
	Function   string `json:"function,omitempty"`
}

// DispatchEntry is one dispatch comparison observation.
type DispatchEntry struct {
	Addr uint64 `json:"addr"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// KeyEntry is one public key read from the data section.
type KeyEntry struct {
	Addr     string `json:"addr"`
	Key      string `json:"key,omitempty"`
	Label    string `json:"label,omitempty"`
	Category string `json:"category,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ProgramEntry is one row of the program label table.
type ProgramEntry struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
}

// ProgramEntries lists the label table sorted by label.
func ProgramEntries(labels pubkey.Labels) []ProgramEntry {
	keys := labels.Keys()
	out := make([]ProgramEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, ProgramEntry{
			Key:      k,
			Label:    labels[k],
			Category: string(pubkey.Classify(labels[k])),
		})
	}
	return out
}

func hex(v uint64) string { return fmt.Sprintf("0x%x", v) }

// NewReport builds a report from an analysis result. Only syscalls present
// in the configured table appear under syscalls_used.
func NewReport(res *analysis.Result) *Report {
	r := &Report{
		TotalInstructions: res.Instructions,
		BinaryHash:        res.Fingerprint,
		ELFSections:       make(map[string]SectionEntry),
		Functions:         make([]FunctionEntry, 0, len(res.Functions)),
		SyscallsUsed:      make(map[string]SyscallEntry),
		StringReferences:  make(map[string]StringEntry),
	}

	for _, s := range res.Sections {
		if s.Size == 0 {
			continue
		}
		r.ELFSections[s.Name] = SectionEntry{
			Offset: hex(s.Offset),
			Size:   hex(s.Size),
			Addr:   hex(s.Addr),
		}
	}

	for _, f := range res.Functions {
		callers := make([]string, 0, len(f.Callers))
		for _, c := range f.Callers {
			callers = append(callers, hex(c))
		}
		r.Functions = append(r.Functions, FunctionEntry{
			Name:             f.Name,
			Start:            f.Start,
			End:              f.End,
			InstructionCount: f.Count,
			Callers:          callers,
		})
	}

	for _, s := range res.Syscalls {
		if !s.Known {
			continue
		}
		r.SyscallsUsed[hex(s.Addr)] = SyscallEntry{Name: s.Name, CallCount: len(s.Callers)}
	}

	for _, ref := range res.Strings {
		r.StringReferences[strconv.FormatUint(ref.Addr, 10)] = StringEntry{
			RodataAddr: hex(ref.VA),
			String:     ref.Value,
			Function:   ref.Func,
		}
	}

	for _, o := range res.Dispatch {
		r.Dispatch = append(r.Dispatch, DispatchEntry{Addr: o.Addr, Kind: string(o.Kind), Text: o.Text})
	}
	return r
}

// AddKeys appends extraction results, labelling each key found in labels.
func (r *Report) AddKeys(results []pubkey.Result, labels pubkey.Labels) {
	r.PublicKeys = append(r.PublicKeys, KeyEntries(results, labels)...)
}

// KeyEntries converts extraction results to report entries.
func KeyEntries(results []pubkey.Result, labels pubkey.Labels) []KeyEntry {
	out := make([]KeyEntry, 0, len(results))
	for _, res := range results {
		e := KeyEntry{Addr: hex(res.Addr)}
		if !res.OK() {
			e.Error = res.Err.Error()
			out = append(out, e)
			continue
		}
		e.Key = res.Key.String()
		if label, ok := labels.Lookup(res.Key); ok {
			e.Label = label
			e.Category = string(pubkey.Classify(label))
		}
		out = append(out, e)
	}
	return out
}
