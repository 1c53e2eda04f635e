// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshintel/match-engine/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [corpus-file...]",
	Short: "Load corpus bundles into the evidence store",
	Long: `Ingest reads corpus YAML bundles (works, doctors, institutions, link
tables, and precomputed embeddings) and upserts them into the evidence
store. Records are keyed by their source identifiers, so re-ingesting
the same bundle is idempotent. Individual record failures are reported
and counted but do not abort the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := engineConfig(cmd)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	failed := 0
	for _, path := range args {
		summary, err := st.IngestFile(context.Background(), path, os.Stdout)
		if err != nil {
			return err
		}
		failed += summary.Failed
	}

	if failed > 0 {
		return fmt.Errorf("%d record(s) failed ingestion", failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
