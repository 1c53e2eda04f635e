// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SourceKind categorizes an evidence source by the kind of artifact it
// indexes.
type SourceKind string

const (
	KindPublication SourceKind = "publication"
	KindTrial       SourceKind = "trial"
	KindGrant       SourceKind = "grant"
	KindRegistry    SourceKind = "metadata_registry"
)

// sourceKinds maps source names to their artifact kind. Sources not listed
// here are treated as metadata registries.
var sourceKinds = map[string]SourceKind{
	"pubmed":       KindPublication,
	"openalex":     KindPublication,
	"crossref":     KindPublication,
	"ctgov":        KindTrial,
	"euctr":        KindTrial,
	"nih_reporter": KindGrant,
}

// KindOfSource returns the artifact kind for a source name.
func KindOfSource(source string) SourceKind {
	if k, ok := sourceKinds[source]; ok {
		return k
	}
	return KindRegistry
}

// Work is a single evidence artifact: a publication, clinical trial, or
// grant record. Works are unique by (source, source_key) and are created
// by the external ingestion pipeline; the engine reads them only.
type Work struct {
	WorkID string `json:"work_id" yaml:"work_id"`

	// Source identifies the indexing registry (pubmed, openalex, crossref,
	// ctgov, nih_reporter).
	Source string `json:"source" yaml:"source"`

	// SourceKey is the source-specific identifier: PMID, OpenAlex ID, DOI,
	// NCT number, or NIH project number.
	SourceKey string `json:"source_key" yaml:"source_key"`

	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Year     int    `json:"year,omitempty" yaml:"year,omitempty"`
	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// MeSHTerms holds MeSH descriptor IDs attached by the source.
	MeSHTerms []string `json:"mesh_terms,omitempty" yaml:"mesh_terms,omitempty"`

	Country       string `json:"country,omitempty" yaml:"country,omitempty"`
	CitationCount int    `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`
	URL           string `json:"url,omitempty" yaml:"url,omitempty"`

	// Raw preserves the source payload as delivered by ingestion.
	Raw string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Kind returns the artifact kind of this work's source.
func (w Work) Kind() SourceKind {
	return KindOfSource(w.Source)
}

// Doctor is a canonical person entity maintained by the ingestion ETL.
type Doctor struct {
	DoctorID         string `json:"doctor_id" yaml:"doctor_id"`
	FullName         string `json:"full_name" yaml:"full_name"`
	ORCID            string `json:"orcid,omitempty" yaml:"orcid,omitempty"`
	NPI              string `json:"npi,omitempty" yaml:"npi,omitempty"`
	PrimarySpecialty string `json:"primary_specialty,omitempty" yaml:"primary_specialty,omitempty"`
}

// Institution is a canonical organization entity.
type Institution struct {
	InstitutionID string `json:"institution_id" yaml:"institution_id"`
	Name          string `json:"name" yaml:"name"`
	City          string `json:"city,omitempty" yaml:"city,omitempty"`
	State         string `json:"state,omitempty" yaml:"state,omitempty"`
	Country       string `json:"country,omitempty" yaml:"country,omitempty"`
}

// DoctorWorkLink associates a doctor with a work. This link set is the
// ground truth for attribution.
type DoctorWorkLink struct {
	DoctorID       string `json:"doctor_id" yaml:"doctor_id"`
	WorkID         string `json:"work_id" yaml:"work_id"`
	AuthorPosition int    `json:"author_position,omitempty" yaml:"author_position,omitempty"`

	// IsPI marks the doctor as principal investigator on a trial or grant.
	IsPI bool `json:"is_pi,omitempty" yaml:"is_pi,omitempty"`
}

// Affiliation links a doctor to an institution with a role and time window.
type Affiliation struct {
	DoctorID      string `json:"doctor_id" yaml:"doctor_id"`
	InstitutionID string `json:"institution_id" yaml:"institution_id"`
	Role          string `json:"role,omitempty" yaml:"role,omitempty"`
	StartYear     int    `json:"start_year,omitempty" yaml:"start_year,omitempty"`

	// EndYear is zero for current affiliations.
	EndYear int `json:"end_year,omitempty" yaml:"end_year,omitempty"`
}

// WorkInstitutionLink associates a work with the institution it was
// produced at, for institution-level roll-ups.
type WorkInstitutionLink struct {
	WorkID        string `json:"work_id" yaml:"work_id"`
	InstitutionID string `json:"institution_id" yaml:"institution_id"`
}
