package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	lrender "github.com/zboralski/lattice/render"

	"sbfre/internal/analysis"
	"sbfre/internal/callgraph"
	"sbfre/internal/disasm"
	"sbfre/internal/output"
	"sbfre/internal/render"
)

func newGraphCmd(g *globals) *cobra.Command {
	var (
		af        analysisFlags
		outDir    string
		title     string
		minBlocks int
		noCFG     bool
		noStrings bool
	)

	cmd := &cobra.Command{
		Use:   "graph <program.so> --disasm <listing.txt> --out <dir>",
		Short: "Write call graph and per-function CFG DOT files",
		Long: `Writes, under --out:
  callgraph.dot   every function and syscall with its call edges
  reachable.dot   the part of the call graph reachable from entry points
  cfg.dot         all function CFGs, string references shown as call sites
                  unless --no-strings is set
  cfg/<func>.dot  one instruction-level CFG per function`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return fmt.Errorf("--out is required")
			}
			p, err := loadProgram(g, cmd, args[0], &af)
			if err != nil {
				return err
			}
			if title == "" {
				title = filepath.Base(args[0])
			}

			cg := callgraph.BuildCallGraph(p.res, p.opts)
			cgPath := filepath.Join(outDir, "callgraph.dot")
			if err := output.WriteDOT(cgPath, lrender.DOT(cg, title)); err != nil {
				return fmt.Errorf("write callgraph.dot: %w", err)
			}
			g.log.Info().Str("path", cgPath).Int("nodes", len(cg.Nodes)).Int("edges", len(cg.Edges)).Msg("wrote call graph")

			entries := render.FindEntryPoints(p.res.Functions, cg)
			reachable := render.ReachableSet(entries, cg)
			reachPath := filepath.Join(outDir, "reachable.dot")
			dot := render.ReachabilityDOT(p.res.Functions, cg, reachable, entries, title+" (reachable)", render.NASA)
			if err := output.WriteDOT(reachPath, dot); err != nil {
				return fmt.Errorf("write reachable.dot: %w", err)
			}
			g.log.Info().Str("path", reachPath).Int("entry_points", len(entries)).Int("reachable", len(reachable)).Msg("wrote reachability graph")

			if noCFG {
				return nil
			}
			n, err := writeCFGs(outDir, title, p, minBlocks, !noStrings)
			if err != nil {
				return err
			}
			g.log.Info().Str("dir", filepath.Join(outDir, "cfg")).Int("functions", n).Msg("wrote CFGs")
			return nil
		},
	}
	af.register(cmd.Flags())
	cmd.Flags().StringVar(&outDir, "out", "", "output directory")
	cmd.Flags().StringVar(&title, "title", "", "graph title (default: program file name)")
	cmd.Flags().IntVar(&minBlocks, "min-blocks", 2, "skip per-function CFGs with fewer basic blocks")
	cmd.Flags().BoolVar(&noCFG, "no-cfg", false, "only write the call graphs")
	cmd.Flags().BoolVar(&noStrings, "no-strings", false, "leave string references out of cfg.dot")
	return cmd
}

// writeCFGs writes the combined lattice CFG and one themed CFG per function
// with at least minBlocks blocks. Returns the number of per-function files.
func writeCFGs(outDir, title string, p *program, minBlocks int, withStrings bool) (int, error) {
	funcs := callgraph.Funcs(p.res, p.insts)

	var all *lattice.CFGGraph
	if withStrings {
		refsByFunc := make(map[string][]analysis.StringRef)
		for _, r := range p.res.Strings {
			refsByFunc[r.Func] = append(refsByFunc[r.Func], r)
		}
		all = &lattice.CFGGraph{}
		for _, f := range funcs {
			lcfg, _ := callgraph.BuildStringCFG(f.Name, f.Insts, refsByFunc[f.Name], p.opts)
			all.Funcs = append(all.Funcs, lcfg)
		}
	} else {
		all = callgraph.BuildCFG(funcs, p.opts)
	}

	count := 0
	for _, f := range funcs {
		dcfg := disasm.BuildCFG(f.Name, f.Insts)
		if len(dcfg.Blocks) < minBlocks {
			continue
		}
		path := filepath.Join(outDir, "cfg", f.Name+".dot")
		if err := output.WriteDOT(path, render.CFGDOT(dcfg, render.NASA)); err != nil {
			return count, fmt.Errorf("write cfg dot %s: %w", f.Name, err)
		}
		count++
	}

	if err := output.WriteDOT(filepath.Join(outDir, "cfg.dot"), lrender.DOTCFG(all, title)); err != nil {
		return count, fmt.Errorf("write cfg.dot: %w", err)
	}
	return count, nil
}
