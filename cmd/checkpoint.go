package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-research/internal/model"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <landscape>",
	Short: "Show crawl progress for a landscape",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "checkpoint")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runKey := model.Landscape{Name: args[0]}.RunKey()
		cp, err := st.LoadCheckpoint(ctx, runKey)
		if err != nil {
			return eris.Wrapf(err, "load checkpoint %s", runKey)
		}
		if cp == nil {
			return eris.Errorf("no checkpoint for %s", runKey)
		}

		printCheckpoint(cmd.OutOrStdout(), runKey, cp)
		return nil
	},
}

func printCheckpoint(w io.Writer, runKey string, cp *model.Checkpoint) {
	state := "in progress"
	if cp.Done() {
		state = "complete"
	}
	fmt.Fprintf(w, "%s: %d/%d domains (%s)\n", runKey, cp.CompletedDomains, cp.TotalDomains, state)
	if !cp.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "updated %s\n", cp.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}

	for _, r := range cp.Results {
		if r.Failed() {
			fmt.Fprintf(w, "  FAIL %s: %s\n", r.Domain, r.Error)
			continue
		}
		parts := []string{
			fmt.Sprintf("%d urls", r.TotalURLs),
			fmt.Sprintf("%d case studies", len(r.CaseStudies)),
			fmt.Sprintf("%d pricing", len(r.Pricing)),
		}
		if r.Source != "" {
			parts = append(parts, "via "+string(r.Source))
		}
		fmt.Fprintf(w, "  OK   %s: %s\n", r.Domain, strings.Join(parts, ", "))
	}
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
}
