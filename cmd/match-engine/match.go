// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/meshintel/match-engine/internal/embed"
	"github.com/meshintel/match-engine/internal/engine"
	"github.com/meshintel/match-engine/internal/store"
	"github.com/meshintel/match-engine/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match [case-file]",
	Short: "Match a case against the evidence store",
	Long: `Match reads a structured case from a YAML file, runs the matching
pipeline (query compilation, embedding, retrieval, aggregation, scoring,
ranking), and prints ranked specialist candidates with score components
and evidence.

With --offline, embeddings are computed locally with a deterministic
token-hash embedder instead of the remote embedding service.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	spec, err := loadCase(args[0])
	if err != nil {
		return err
	}

	filters := filtersFromFlags(cmd)
	cfg := engineConfig(cmd)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(st, buildEmbedder(cmd, cfg), cfg, os.Stderr)

	out, err := eng.Match(context.Background(), spec, filters)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatMatchOutput(out, jsonOutput)
}

// buildEmbedder picks the embedding backend: the local hash embedder when
// --offline is set, the remote service when an endpoint is configured,
// and none otherwise (symbolic-only retrieval).
func buildEmbedder(cmd *cobra.Command, cfg types.EngineConfig) embed.Embedder {
	offline, _ := cmd.Flags().GetBool("offline")
	if offline {
		return &embed.HashEmbedder{Dimensions: cfg.Embedding.Dimensions}
	}
	if cfg.Embedding.Endpoint != "" {
		return embed.NewRemote(cfg.Embedding)
	}
	return nil
}

func loadCase(path string) (types.CaseSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CaseSpec{}, fmt.Errorf("reading case file: %w", err)
	}
	var spec types.CaseSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return types.CaseSpec{}, fmt.Errorf("parsing case file %s: %w", path, err)
	}
	return spec, nil
}

func filtersFromFlags(cmd *cobra.Command) types.MatchFilters {
	minYear, _ := cmd.Flags().GetInt("min-year")
	meshTerms, _ := cmd.Flags().GetStringSlice("mesh")
	specialties, _ := cmd.Flags().GetStringSlice("specialty")
	countries, _ := cmd.Flags().GetStringSlice("country")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.MatchFilters{
		MinYear:     minYear,
		MeSHTerms:   meshTerms,
		Specialties: specialties,
		Countries:   countries,
		MaxResults:  maxResults,
	}
}

func formatMatchOutput(out types.MatchOutput, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out.Results) == 0 {
		fmt.Println("No candidates found.")
		printDiagnostics(out.Diagnostics)
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-28s  %-24s  %-28s  %8s  %s\n",
		"Rank", "Doctor", "Specialty", "Institution", "Score", "Evidence")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, r := range out.Results {
		name := truncate(r.DoctorName, 28)
		specialty := truncate(r.Specialty, 24)
		institution := truncate(r.Institution, 28)
		fmt.Fprintf(os.Stdout, "%-4d  %-28s  %-24s  %-28s  %8.1f  %d items\n",
			i+1, name, specialty, institution, r.TotalScore, len(r.Evidence))
		fmt.Fprintf(os.Stdout, "      %s\n", r.Explanation)
	}

	fmt.Fprintf(os.Stdout, "\n%d candidates\n", len(out.Results))
	printDiagnostics(out.Diagnostics)
	return nil
}

func printDiagnostics(d types.Diagnostics) {
	for _, se := range d.SourceErrors {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", se.Source, se.Err)
	}
	if d.AttributionGaps > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d hits had no attributable doctor\n", d.AttributionGaps)
	}
	if d.Partial {
		fmt.Fprintln(os.Stderr, "warning: results are partial; the match deadline expired before all sources completed")
	}
}

// truncate shortens s to at most n display characters, counting runes so
// multi-byte names are never cut mid-character.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	matchCmd.Flags().Int("min-year", 0, "exclude works published before this year")
	matchCmd.Flags().StringSlice("mesh", nil, "require at least one of these MeSH descriptors")
	matchCmd.Flags().StringSlice("specialty", nil, "restrict candidates by primary specialty")
	matchCmd.Flags().StringSlice("country", nil, "restrict works by country")
	matchCmd.Flags().Int("max-results", 0, "maximum candidates to return (0 = use default)")
	matchCmd.Flags().Bool("offline", false, "use the local deterministic embedder instead of the remote service")
	matchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(matchCmd)
}
