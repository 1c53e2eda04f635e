// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/match-engine/pkg/types"
)

// engineConfig assembles the engine configuration from defaults, the
// config file, environment variables, and command-line flags, in
// ascending precedence.
func engineConfig(cmd *cobra.Command) types.EngineConfig {
	defaults := types.DefaultEngineConfig()

	viper.SetDefault("store_path", defaults.StorePath)
	viper.SetDefault("match_timeout", defaults.MatchTimeout)
	viper.SetDefault("retrieval.lookback_years", defaults.Retrieval.LookbackYears)
	viper.SetDefault("retrieval.similarity_threshold", defaults.Retrieval.SimilarityThreshold)
	viper.SetDefault("retrieval.per_source_limit", defaults.Retrieval.PerSourceLimit)
	viper.SetDefault("retrieval.source_timeout", defaults.Retrieval.SourceTimeout)
	viper.SetDefault("weights.pub_weight", defaults.Weights.PubWeight)
	viper.SetDefault("weights.trial_pi_weight", defaults.Weights.TrialPIWeight)
	viper.SetDefault("weights.citation_weight", defaults.Weights.CitationWeight)
	viper.SetDefault("weights.inst_pub_weight", defaults.Weights.InstPubWeight)
	viper.SetDefault("weights.inst_trial_weight", defaults.Weights.InstTrialWeight)
	viper.SetDefault("weights.grant_weight", defaults.Weights.GrantWeight)
	viper.SetDefault("weights.institution_factor", defaults.Weights.InstitutionFactor)
	viper.SetDefault("ranking.max_results", defaults.Ranking.MaxResults)
	viper.SetDefault("ranking.max_evidence", defaults.Ranking.MaxEvidence)
	viper.SetDefault("embedding.timeout", defaults.Embedding.Timeout)
	viper.SetDefault("embedding.user_agent", defaults.Embedding.UserAgent)
	viper.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)

	cfg := types.EngineConfig{
		StorePath:    viper.GetString("store_path"),
		MatchTimeout: viper.GetDuration("match_timeout"),
		Retrieval: types.RetrievalConfig{
			LookbackYears:       viper.GetInt("retrieval.lookback_years"),
			SimilarityThreshold: viper.GetFloat64("retrieval.similarity_threshold"),
			PerSourceLimit:      viper.GetInt("retrieval.per_source_limit"),
			SourceTimeout:       viper.GetDuration("retrieval.source_timeout"),
			Sources:             viper.GetStringSlice("retrieval.sources"),
		},
		Weights: types.ScoringWeights{
			PubWeight:         viper.GetFloat64("weights.pub_weight"),
			TrialPIWeight:     viper.GetFloat64("weights.trial_pi_weight"),
			CitationWeight:    viper.GetFloat64("weights.citation_weight"),
			InstPubWeight:     viper.GetFloat64("weights.inst_pub_weight"),
			InstTrialWeight:   viper.GetFloat64("weights.inst_trial_weight"),
			GrantWeight:       viper.GetFloat64("weights.grant_weight"),
			InstitutionFactor: viper.GetFloat64("weights.institution_factor"),
		},
		Ranking: types.RankingConfig{
			MaxResults:  viper.GetInt("ranking.max_results"),
			MaxEvidence: viper.GetInt("ranking.max_evidence"),
		},
		Embedding: types.EmbeddingConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("embedding.timeout"),
				UserAgent: viper.GetString("embedding.user_agent"),
			},
			Endpoint:   viper.GetString("embedding.endpoint"),
			Model:      viper.GetString("embedding.model"),
			APIKey:     secretDefault("embedding-api-key", viper.GetString("embedding.api_key")),
			Dimensions: viper.GetInt("embedding.dimensions"),
		},
	}

	if storePath, _ := cmd.Flags().GetString("store"); storePath != "" {
		cfg.StorePath = storePath
	}
	return cfg
}
