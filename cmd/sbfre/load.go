package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sbfre/internal/analysis"
	"sbfre/internal/config"
	"sbfre/internal/disasm"
	"sbfre/internal/elfx"
)

// analysisFlags are shared by the commands that run the analysis passes.
// Each one overrides the matching config value only when set.
type analysisFlags struct {
	listing   string
	entry     string
	threshold string
	window    int
}

func (f *analysisFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.listing, "disasm", "d", "", "disassembly listing of the program (\"-\" for stdin)")
	fs.StringVar(&f.entry, "entry", "", "entrypoint address, overrides entry_addr")
	fs.StringVar(&f.threshold, "syscall-threshold", "", "lowest syscall address (hex), overrides syscall_threshold")
	fs.IntVar(&f.window, "dispatch-window", 0, "instructions scanned for dispatch compares (0 = all), overrides dispatch_window")
}

func (f *analysisFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("entry") {
		v, err := parseNumber(f.entry)
		if err != nil {
			return fmt.Errorf("--entry: %w", err)
		}
		cfg.EntryAddr = v
	}
	if fs.Changed("syscall-threshold") {
		v, err := parseNumber(f.threshold)
		if err != nil {
			return fmt.Errorf("--syscall-threshold: %w", err)
		}
		cfg.SyscallThreshold = v
	}
	if fs.Changed("dispatch-window") {
		cfg.DispatchWindow = f.window
	}
	return cfg.Validate()
}

// parseNumber accepts 0x-prefixed hex or decimal; listings print
// instruction addresses in decimal.
func parseNumber(s string) (uint64, error) {
	if v, err := config.ParseAddr(s); err == nil {
		return v, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

// program is a loaded image with its listing and analysis result.
type program struct {
	img   *elfx.Image
	insts []disasm.Inst
	opts  analysis.Options
	res   *analysis.Result
}

func loadProgram(g *globals, cmd *cobra.Command, path string, f *analysisFlags) (*program, error) {
	if f.listing == "" {
		return nil, fmt.Errorf("--disasm is required")
	}
	if err := f.apply(cmd, g.cfg); err != nil {
		return nil, err
	}

	img, err := elfx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	g.log.Info().
		Str("path", path).
		Int("sections", len(img.Sections())).
		Str("xxh3", img.Fingerprint()).
		Msg("parsed image")

	insts, err := readListing(cmd, f.listing)
	if err != nil {
		return nil, err
	}
	g.log.Info().Int("instructions", len(insts)).Msg("parsed listing")

	opts := g.cfg.AnalysisOptions()
	res, err := analysis.Analyze(img, insts, opts)
	if err != nil {
		return nil, err
	}
	g.log.Info().
		Int("call_targets", len(res.CallGraph.Targets)).
		Int("internal", len(res.Internal)).
		Int("syscalls", len(res.Syscalls)).
		Int("exits", len(res.Exits)).
		Int("functions", len(res.Functions)).
		Int("dispatch", len(res.Dispatch)).
		Int("strings", len(res.Strings)).
		Msg("analysis complete")
	for _, s := range res.Syscalls {
		if !s.Known {
			g.log.Debug().Str("addr", fmt.Sprintf("0x%x", s.Addr)).Int("calls", len(s.Callers)).Msg("unmapped syscall")
		}
	}

	return &program{img: img, insts: insts, opts: opts, res: res}, nil
}

func readListing(cmd *cobra.Command, path string) ([]disasm.Inst, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		//nolint:gosec // G304: path is supplied by the user on purpose.
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open listing: %w", err)
		}
		defer f.Close()
		r = f
	}
	insts, err := disasm.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return insts, nil
}
