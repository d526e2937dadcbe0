package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sbfre/internal/analysis"
	"sbfre/internal/disasm"
	"sbfre/internal/elfx"
	"sbfre/internal/output"
	"sbfre/internal/pubkey"
)

func newAnalyzeCmd(g *globals) *cobra.Command {
	var (
		af      analysisFlags
		outPath string
		text    bool
		keys    bool
		asmDir  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <program.so> --disasm <listing.txt>",
		Short: "Rebuild the call graph, functions, syscalls and string references",
		Long: `Parses the ELF section table and an llvm-objdump style listing of the
same program, then reconstructs the call graph, function boundaries,
syscall usage, dispatch comparisons and string references. The report is
written as JSON to --out, or to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(g, cmd, args[0], &af)
			if err != nil {
				return err
			}

			report := output.NewReport(p.res)
			var keyResults []pubkey.Result
			if keys {
				results, err := extractKeys(g, p.img)
				switch {
				case errors.Is(err, elfx.ErrNoSection):
					g.log.Warn().Err(err).Msg("skipping key extraction")
				case err != nil:
					return err
				default:
					keyResults = pubkey.Unique(results)
					report.AddKeys(keyResults, g.cfg.ProgramLabels())
				}
			}

			if asmDir != "" {
				if err := writeFunctionASM(asmDir, p); err != nil {
					return err
				}
				g.log.Info().Str("dir", asmDir).Int("functions", len(p.res.Functions)).Msg("wrote listings")
			}

			w := cmd.OutOrStdout()
			if text {
				output.PrintFunctions(w, p.res.Functions)
				output.PrintSyscalls(w, p.res.Syscalls)
				output.PrintDispatch(w, p.res.Dispatch)
				output.PrintStrings(w, p.res.Strings)
				if len(keyResults) > 0 {
					fmt.Fprintf(w, "Public keys: %d\n", len(keyResults))
					output.PrintKeys(w, keyResults, g.cfg.ProgramLabels())
				}
			}

			switch {
			case outPath != "":
				if err := output.WriteReportJSON(outPath, report); err != nil {
					return err
				}
				g.log.Info().Str("path", outPath).Msg("wrote report")
			case !text:
				return output.EncodeReport(w, report)
			}
			return nil
		},
	}
	af.register(cmd.Flags())
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the JSON report to this file")
	cmd.Flags().BoolVar(&text, "text", false, "print a text summary instead of JSON on stdout")
	cmd.Flags().BoolVar(&keys, "keys", true, "extract public keys at the configured addresses")
	cmd.Flags().StringVar(&asmDir, "asm-dir", "", "write one annotated listing per function into this directory")
	return cmd
}

// writeFunctionASM writes <dir>/<func>.txt for every function, with call
// targets annotated by function or syscall name.
func writeFunctionASM(dir string, p *program) error {
	names := make(map[uint64]string)
	for _, f := range p.res.Functions {
		names[f.Start] = f.Name
	}
	for _, s := range p.res.Syscalls {
		names[s.Addr] = s.Name
	}
	lookup := disasm.PlaceholderLookup(names)

	for _, f := range p.res.Functions {
		path := filepath.Join(dir, f.Name+".txt")
		if err := output.WriteASM(path, analysis.InstsInRange(p.insts, f), lookup); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
