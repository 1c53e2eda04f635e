// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MatchedVia records which retrieval pass admitted a work.
type MatchedVia string

const (
	// ViaSymbolic marks hits admitted by symbolic filters alone. Only
	// sources without a vector index produce these (degraded mode).
	ViaSymbolic MatchedVia = "symbolic"

	// ViaVector marks hits admitted by vector similarity when no symbolic
	// predicates were in effect.
	ViaVector MatchedVia = "vector"

	// ViaBoth marks hits that passed the symbolic gate and the similarity
	// threshold.
	ViaBoth MatchedVia = "both"
)

// Predicates are the hard symbolic constraints a work must satisfy to be
// eligible, independent of similarity scoring.
type Predicates struct {
	// MinYear excludes works published before this year. Works with an
	// unknown year (zero) pass the gate.
	MinYear int `json:"min_year,omitempty" yaml:"min_year,omitempty"`

	// MeSHTerms requires membership of at least one listed descriptor in
	// the work's MeSH terms.
	MeSHTerms []string `json:"mesh_terms,omitempty" yaml:"mesh_terms,omitempty"`

	// Specialties restricts candidate doctors by primary specialty. It is
	// applied after aggregation, not to works.
	Specialties []string `json:"specialties,omitempty" yaml:"specialties,omitempty"`

	// Countries restricts works by indexing country.
	Countries []string `json:"countries,omitempty" yaml:"countries,omitempty"`
}

// IsZero reports whether no symbolic constraint is in effect.
func (p Predicates) IsZero() bool {
	return p.MinYear == 0 && len(p.MeSHTerms) == 0 && len(p.Specialties) == 0 && len(p.Countries) == 0
}

// QueryPack is the source-agnostic query derived from one CaseSpec. It is
// created per matching request and discarded after use.
type QueryPack struct {
	Predicates Predicates

	// Keywords are the distinct, lowercased case terms used for overlap
	// scoring against titles and abstracts.
	Keywords []string

	// Abstract is the synthetic case abstract, the sole input to embedding
	// generation.
	Abstract string

	// Embedding is the query vector. Nil when embedding generation was
	// unavailable; retrieval then runs in degraded symbolic-only mode.
	Embedding []float32

	// AnchorYear anchors recency windows and bonuses.
	AnchorYear int

	// LookbackYears is the recency window for the publication count.
	LookbackYears int
}

// WorkHit is a work admitted by retrieval with its relevance score.
type WorkHit struct {
	Work       Work       `json:"work" yaml:"work"`
	Relevance  float64    `json:"relevance" yaml:"relevance"`
	Similarity float64    `json:"similarity,omitempty" yaml:"similarity,omitempty"`
	MatchedVia MatchedVia `json:"matched_via" yaml:"matched_via"`
}

// AttributedHit is a WorkHit resolved to a specific doctor.
type AttributedHit struct {
	WorkHit
	AuthorPosition int  `json:"author_position,omitempty" yaml:"author_position,omitempty"`
	IsPI           bool `json:"is_pi,omitempty" yaml:"is_pi,omitempty"`
}

// ScoreComponents are the discrete evidence counts scoring consumes.
type ScoreComponents struct {
	Pubs5y          int `json:"pubs_5y" yaml:"pubs_5y"`
	TrialsPI        int `json:"trials_pi" yaml:"trials_pi"`
	CitationsBucket int `json:"citations_bucket" yaml:"citations_bucket"`
	InstPubs        int `json:"inst_pubs" yaml:"inst_pubs"`
	InstTrials      int `json:"inst_trials" yaml:"inst_trials"`
	NIHGrants       int `json:"nih_grants" yaml:"nih_grants"`
}

// EvidenceBundle collects the hits attributable to one doctor, directly
// and through affiliated institutions, plus the precomputed components.
type EvidenceBundle struct {
	DoctorID string `json:"doctor_id" yaml:"doctor_id"`

	// Hits are works the doctor authored or led.
	Hits []AttributedHit `json:"hits" yaml:"hits"`

	// InstHits are works attributed to the doctor's institutions,
	// independent of personal authorship.
	InstHits []WorkHit `json:"inst_hits,omitempty" yaml:"inst_hits,omitempty"`

	// InstitutionIDs lists the doctor's affiliated institutions,
	// deduplicated.
	InstitutionIDs []string `json:"institution_ids,omitempty" yaml:"institution_ids,omitempty"`

	Components ScoreComponents `json:"components" yaml:"components"`
}

// Evidence is one item of a match result's evidence trail.
type Evidence struct {
	// Type is the source name (pubmed, ctgov, nih_reporter, ...).
	Type string `json:"type" yaml:"type"`

	// SourceKey is the source-specific identifier (PMID, NCT, project
	// number).
	SourceKey string `json:"source_key" yaml:"source_key"`

	Title     string  `json:"title" yaml:"title"`
	Year      int     `json:"year,omitempty" yaml:"year,omitempty"`
	DOI       string  `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL       string  `json:"url,omitempty" yaml:"url,omitempty"`
	Relevance float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`

	// Role is "PI" or "Investigator" for trials and grants, empty for
	// publications.
	Role string `json:"role,omitempty" yaml:"role,omitempty"`

	// Institutional marks evidence attributed through an affiliation
	// rather than direct authorship.
	Institutional bool `json:"institutional,omitempty" yaml:"institutional,omitempty"`
}

// MatchResult is one ranked candidate specialist with scores, evidence,
// and an explanation. Every non-zero score component is traceable to at
// least one item in Evidence.
type MatchResult struct {
	DoctorID    string `json:"doctor_id" yaml:"doctor_id"`
	DoctorName  string `json:"doctor_name" yaml:"doctor_name"`
	Specialty   string `json:"specialty,omitempty" yaml:"specialty,omitempty"`
	Institution string `json:"institution,omitempty" yaml:"institution,omitempty"`

	TotalScore       float64         `json:"total_score" yaml:"total_score"`
	DoctorScore      float64         `json:"doctor_score" yaml:"doctor_score"`
	InstitutionScore float64         `json:"institution_score" yaml:"institution_score"`
	Components       ScoreComponents `json:"components" yaml:"components"`

	Evidence    []Evidence `json:"evidence" yaml:"evidence"`
	Explanation string     `json:"explanation" yaml:"explanation"`
}

// MatchFilters narrow a match request beyond the case itself.
type MatchFilters struct {
	MinYear     int      `json:"min_year,omitempty" yaml:"min_year,omitempty"`
	MeSHTerms   []string `json:"mesh_terms,omitempty" yaml:"mesh_terms,omitempty"`
	Specialties []string `json:"specialties,omitempty" yaml:"specialties,omitempty"`
	Countries   []string `json:"countries,omitempty" yaml:"countries,omitempty"`
	MaxResults  int      `json:"max_results,omitempty" yaml:"max_results,omitempty"`
}

// SourceError records a per-source retrieval failure that was recovered
// locally.
type SourceError struct {
	Source string `json:"source" yaml:"source"`
	Err    string `json:"error" yaml:"error"`
}

// Diagnostics accompany match results so degraded evidence is never
// presented silently as complete.
type Diagnostics struct {
	// SourceErrors lists sources that failed or timed out and contributed
	// zero hits.
	SourceErrors []SourceError `json:"source_errors,omitempty" yaml:"source_errors,omitempty"`

	// AttributionGaps counts hits dropped because no doctor could be
	// resolved for the work.
	AttributionGaps int `json:"attribution_gaps,omitempty" yaml:"attribution_gaps,omitempty"`

	// Partial is true when the overall deadline expired and results were
	// assembled from whichever sources completed.
	Partial bool `json:"partial" yaml:"partial"`
}

// MatchOutput is the full response of a match operation.
type MatchOutput struct {
	Results     []MatchResult `json:"results" yaml:"results"`
	Diagnostics Diagnostics   `json:"diagnostics" yaml:"diagnostics"`
}

// ScoreBreakdown is the detailed component view returned by Explain. It
// is re-derived from the persisted match run without re-running retrieval.
type ScoreBreakdown struct {
	CaseID           string          `json:"case_id" yaml:"case_id"`
	DoctorID         string          `json:"doctor_id" yaml:"doctor_id"`
	TotalScore       float64         `json:"total_score" yaml:"total_score"`
	DoctorScore      float64         `json:"doctor_score" yaml:"doctor_score"`
	InstitutionScore float64         `json:"institution_score" yaml:"institution_score"`
	Components       ScoreComponents `json:"components" yaml:"components"`
	Evidence         []Evidence      `json:"evidence" yaml:"evidence"`
	Explanation      string          `json:"explanation" yaml:"explanation"`

	// Methodology describes the weighted formula with the weights that
	// were in effect for the run.
	Methodology string `json:"methodology" yaml:"methodology"`
}
