// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "match-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// EmbeddingConfig holds settings for the external embedding service.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the embedding service URL. Empty disables remote
	// embedding; retrieval then runs symbolic-only.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Model is the embedding model identifier.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// APIKey authenticates against the embedding service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Dimensions is the expected vector width (default 768).
	Dimensions int `json:"dimensions" yaml:"dimensions"`
}

// RetrievalConfig holds settings for the retrieval layer.
type RetrievalConfig struct {
	// LookbackYears bounds the recency window for the year predicate and
	// the pubs_5y component (default 5).
	LookbackYears int `json:"lookback_years" yaml:"lookback_years"`

	// SimilarityThreshold is the minimum cosine similarity for the vector
	// pass (default 0.7).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// PerSourceLimit caps candidates surviving the vector pass per source
	// (default 100).
	PerSourceLimit int `json:"per_source_limit" yaml:"per_source_limit"`

	// SourceTimeout bounds each per-source retrieval call (default 10s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// Sources lists the evidence sources to query. Empty uses all sources
	// present in the store.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// ScoringWeights are the named constants of the composite score. They
// live in one structure so recalibration is a data change.
type ScoringWeights struct {
	PubWeight       float64 `json:"pub_weight" yaml:"pub_weight"`
	TrialPIWeight   float64 `json:"trial_pi_weight" yaml:"trial_pi_weight"`
	CitationWeight  float64 `json:"citation_weight" yaml:"citation_weight"`
	InstPubWeight   float64 `json:"inst_pub_weight" yaml:"inst_pub_weight"`
	InstTrialWeight float64 `json:"inst_trial_weight" yaml:"inst_trial_weight"`
	GrantWeight     float64 `json:"grant_weight" yaml:"grant_weight"`

	// InstitutionFactor scales the institution score's contribution to the
	// total.
	InstitutionFactor float64 `json:"institution_factor" yaml:"institution_factor"`
}

// DefaultWeights returns the calibrated production weights:
// doctor = 2*pubs_5y + 5*trials_pi + 1*citations_bucket,
// institution = 0.5*inst_pubs + 2*inst_trials + 0.5*nih_grants,
// total = doctor + 0.5*institution.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		PubWeight:         2,
		TrialPIWeight:     5,
		CitationWeight:    1,
		InstPubWeight:     0.5,
		InstTrialWeight:   2,
		GrantWeight:       0.5,
		InstitutionFactor: 0.5,
	}
}

// RankingConfig holds settings for result ordering and evidence trails.
type RankingConfig struct {
	// MaxResults is the default result count when the caller does not
	// specify one (default 10). The engine enforces a hard ceiling
	// independent of this value.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxEvidence caps evidence items per doctor (default 5).
	MaxEvidence int `json:"max_evidence" yaml:"max_evidence"`
}

// EngineConfig groups all matching engine configuration.
type EngineConfig struct {
	// StorePath is the evidence store SQLite file.
	StorePath string `json:"store_path" yaml:"store_path"`

	// MatchTimeout bounds the whole match operation. Zero means no
	// engine-imposed deadline beyond the caller's context.
	MatchTimeout time.Duration `json:"match_timeout" yaml:"match_timeout"`

	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Weights   ScoringWeights  `json:"weights" yaml:"weights"`
	Ranking   RankingConfig   `json:"ranking" yaml:"ranking"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
}

// DefaultEngineConfig returns the engine defaults used when no config
// file overrides them.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		StorePath:    "evidence/match.db",
		MatchTimeout: 30 * time.Second,
		Retrieval: RetrievalConfig{
			LookbackYears:       5,
			SimilarityThreshold: 0.7,
			PerSourceLimit:      100,
			SourceTimeout:       10 * time.Second,
		},
		Weights: DefaultWeights(),
		Ranking: RankingConfig{
			MaxResults:  10,
			MaxEvidence: 5,
		},
		Embedding: EmbeddingConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   15 * time.Second,
				UserAgent: "match-engine/0.1",
			},
			Dimensions: 768,
		},
	}
}
