// Command sbfre recovers structure from Solana BPF programs: the ELF
// section table, hardcoded program IDs, and a call graph with function
// boundaries, syscall usage, dispatch compares and string references
// rebuilt from an llvm-objdump style listing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
