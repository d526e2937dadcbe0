package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sbfre/internal/elfx"
	"sbfre/internal/output"
	"sbfre/internal/pubkey"
)

func newKeysCmd(g *globals) *cobra.Command {
	var (
		addrs   []string
		section string
		all      bool
		jsonOut  bool
		programs bool
	)

	cmd := &cobra.Command{
		Use:   "keys <program.so> | keys --programs",
		Short: "Extract 32-byte public keys at known data addresses",
		Long: `Reads a 32-byte public key at every configured address in the data
section, prints it in base58 and labels the ones found in the program table.
A failed read is reported for that address and extraction continues.

With --programs, prints the program label table grouped by category
instead; no program file is needed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if programs {
				return printPrograms(cmd, g.cfg.ProgramLabels(), jsonOut)
			}
			if len(args) == 0 {
				return fmt.Errorf("keys: program file required")
			}
			img, err := elfx.Open(args[0])
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}

			if cmd.Flags().Changed("section") {
				g.cfg.KeySection = section
			}
			if len(addrs) > 0 {
				g.cfg.KeyAddrs = addrs
			}
			results, err := extractKeys(g, img)
			if err != nil {
				return err
			}
			if !all {
				results = pubkey.Unique(results)
			}

			labels := g.cfg.ProgramLabels()
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(output.KeyEntries(results, labels))
			}
			output.PrintKeys(cmd.OutOrStdout(), results, labels)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&addrs, "addr", nil, "key address (0x-prefixed hex, repeatable); replaces the configured list")
	cmd.Flags().StringVar(&section, "section", ".rodata", "section holding the keys")
	cmd.Flags().BoolVar(&all, "all", false, "keep repeated keys")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	cmd.Flags().BoolVar(&programs, "programs", false, "list the program label table and category totals")
	return cmd
}

func printPrograms(cmd *cobra.Command, labels pubkey.Labels, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(output.ProgramEntries(labels))
	}
	output.PrintPrograms(cmd.OutOrStdout(), labels)
	return nil
}

// extractKeys reads every configured key address. Per-address failures are
// logged and kept in the results.
func extractKeys(g *globals, img *elfx.Image) ([]pubkey.Result, error) {
	va, err := g.cfg.KeyAddresses()
	if err != nil {
		return nil, err
	}
	sec, err := img.Section(g.cfg.KeySection)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	g.log.Debug().
		Str("section", sec.Name).
		Str("addr", fmt.Sprintf("0x%x", sec.Addr)).
		Str("offset", fmt.Sprintf("0x%x", sec.Offset)).
		Str("size", fmt.Sprintf("0x%x", sec.Size)).
		Msg("key section")

	results := pubkey.Extract(img, sec, va)
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			g.log.Warn().Err(r.Err).Str("addr", fmt.Sprintf("0x%06x", r.Addr)).Msg("key read failed")
		}
	}
	g.log.Info().Int("addrs", len(va)).Int("failed", failed).Msg("extracted keys")
	return results, nil
}
