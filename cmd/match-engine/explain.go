// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshintel/match-engine/internal/engine"
	"github.com/meshintel/match-engine/internal/store"
)

var explainCmd = &cobra.Command{
	Use:   "explain [case-id] [doctor-id]",
	Short: "Show the score breakdown for one candidate of a matched case",
	Long: `Explain prints the persisted score components, evidence, and scoring
methodology for one doctor from the most recent match run of a case.
It reads the stored run; retrieval is not re-executed.`,
	Args: cobra.ExactArgs(2),
	RunE: runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	caseID, doctorID := args[0], args[1]
	cfg := engineConfig(cmd)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(st, nil, cfg, os.Stderr)
	bd, err := eng.Explain(context.Background(), caseID, doctorID)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bd)
	}

	fmt.Printf("Case %s, doctor %s\n\n", bd.CaseID, bd.DoctorID)
	fmt.Printf("Total score:       %.1f\n", bd.TotalScore)
	fmt.Printf("Doctor score:      %.1f\n", bd.DoctorScore)
	fmt.Printf("Institution score: %.1f\n\n", bd.InstitutionScore)

	c := bd.Components
	fmt.Printf("Components: pubs_5y=%d trials_pi=%d citations_bucket=%d "+
		"inst_pubs=%d inst_trials=%d nih_grants=%d\n\n",
		c.Pubs5y, c.TrialsPI, c.CitationsBucket, c.InstPubs, c.InstTrials, c.NIHGrants)

	if len(bd.Evidence) > 0 {
		fmt.Println("Evidence:")
		for _, ev := range bd.Evidence {
			line := fmt.Sprintf("  [%s] %s (%d)", ev.Type, ev.Title, ev.Year)
			if ev.Role != "" {
				line += " role=" + ev.Role
			}
			if ev.Institutional {
				line += " (institutional)"
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	fmt.Println(bd.Explanation)
	fmt.Printf("\nMethodology: %s\n", bd.Methodology)
	return nil
}

func init() {
	explainCmd.Flags().Bool("json", false, "output the breakdown as JSON")

	rootCmd.AddCommand(explainCmd)
}
