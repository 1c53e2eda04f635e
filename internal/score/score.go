// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes deterministic composite scores from aggregated
// evidence components. Scoring is pure: identical bundles always yield
// identical scores.
// Implements: prd010-matching (Scorer);
//
//	docs/ARCHITECTURE § Scoring.
package score

import (
	"fmt"

	"github.com/meshintel/match-engine/pkg/types"
)

// ScoredDoctor is an evidence bundle with its computed scores.
type ScoredDoctor struct {
	types.EvidenceBundle

	DoctorScore      float64
	InstitutionScore float64
	TotalScore       float64
}

// Compute returns the doctor, institution, and total scores for one set
// of components under the given weights.
func Compute(c types.ScoreComponents, wts types.ScoringWeights) (doctorScore, institutionScore, totalScore float64) {
	doctorScore = wts.PubWeight*float64(c.Pubs5y) +
		wts.TrialPIWeight*float64(c.TrialsPI) +
		wts.CitationWeight*float64(c.CitationsBucket)

	institutionScore = wts.InstPubWeight*float64(c.InstPubs) +
		wts.InstTrialWeight*float64(c.InstTrials) +
		wts.GrantWeight*float64(c.NIHGrants)

	totalScore = doctorScore + wts.InstitutionFactor*institutionScore
	return doctorScore, institutionScore, totalScore
}

// All scores every bundle.
func All(bundles []types.EvidenceBundle, wts types.ScoringWeights) []ScoredDoctor {
	scored := make([]ScoredDoctor, 0, len(bundles))
	for _, bundle := range bundles {
		d, i, t := Compute(bundle.Components, wts)
		scored = append(scored, ScoredDoctor{
			EvidenceBundle:   bundle,
			DoctorScore:      d,
			InstitutionScore: i,
			TotalScore:       t,
		})
	}
	return scored
}

// Methodology describes the weighted formula in effect, for audit
// output.
func Methodology(wts types.ScoringWeights) string {
	return fmt.Sprintf(
		"doctor = %g*pubs_5y + %g*trials_pi + %g*citations_bucket; "+
			"institution = %g*inst_pubs + %g*inst_trials + %g*nih_grants; "+
			"total = doctor + %g*institution",
		wts.PubWeight, wts.TrialPIWeight, wts.CitationWeight,
		wts.InstPubWeight, wts.InstTrialWeight, wts.GrantWeight,
		wts.InstitutionFactor)
}
