// Package output writes sbfre analysis results to files and terminals.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sbfre/internal/disasm"
)

// WriteReportJSON writes the report to path as indented JSON.
func WriteReportJSON(path string, r *Report) error {
	return writeJSON(path, r)
}

// EncodeReport writes the report to w as indented JSON.
func EncodeReport(w io.Writer, r *Report) error {
	return encodeJSON(w, r)
}

// WriteDOT writes Graphviz source to path, creating parent directories.
func WriteDOT(path, dot string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(dot), 0644)
}

// WriteASM writes instructions back out in listing form, with calls
// annotated through lookup.
func WriteASM(path string, insts []disasm.Inst, lookup disasm.SymbolLookup) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	text := disasm.Format(insts, lookup)
	return os.WriteFile(path, []byte(text), 0644)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	if err := encodeJSON(f, v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
