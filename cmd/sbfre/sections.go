package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sbfre/internal/elfx"
	"sbfre/internal/output"
)

type sectionJSON struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Flags  string `json:"flags"`
	Addr   string `json:"addr"`
	Offset string `json:"offset"`
	Size   string `json:"size"`
}

func newSectionsCmd(g *globals) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sections <program.so>",
		Short: "Print the ELF section table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := elfx.Open(args[0])
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			g.log.Debug().
				Str("path", args[0]).
				Int("size", img.Len()).
				Str("xxh3", img.Fingerprint()).
				Msg("parsed image")

			secs := img.Sections()
			if !jsonOut {
				output.PrintSections(cmd.OutOrStdout(), secs)
				return nil
			}

			out := make([]sectionJSON, 0, len(secs))
			for _, s := range secs {
				out = append(out, sectionJSON{
					Index:  s.Index,
					Name:   s.Name,
					Type:   elfx.TypeName(s.Type),
					Flags:  elfx.FlagString(s.Flags),
					Addr:   fmt.Sprintf("0x%x", s.Addr),
					Offset: fmt.Sprintf("0x%x", s.Offset),
					Size:   fmt.Sprintf("0x%x", s.Size),
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of a table")
	return cmd
}
