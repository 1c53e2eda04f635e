// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/match-engine/pkg/types"
)

// Corpus is the YAML bundle format the ingestion pipeline delivers.
type Corpus struct {
	Works        []types.Work                `yaml:"works"`
	Embeddings   map[string][]float32        `yaml:"embeddings,omitempty"`
	Doctors      []types.Doctor              `yaml:"doctors,omitempty"`
	Institutions []types.Institution         `yaml:"institutions,omitempty"`
	Links        []types.DoctorWorkLink      `yaml:"links,omitempty"`
	Affiliations []types.Affiliation         `yaml:"affiliations,omitempty"`
	WorkInsts    []types.WorkInstitutionLink `yaml:"work_institutions,omitempty"`
}

// IngestSummary holds counts from a corpus ingestion run.
type IngestSummary struct {
	Works        int
	Doctors      int
	Institutions int
	Links        int
	Failed       int
}

// IngestFile reads a corpus YAML file and upserts its records. Individual
// record failures are reported on w and counted, not fatal.
func (s *Store) IngestFile(ctx context.Context, path string, w io.Writer) (IngestSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading corpus file %s: %w", path, err)
	}

	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return IngestSummary{}, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}

	return s.IngestCorpus(ctx, corpus, w)
}

// IngestCorpus upserts a corpus bundle inside one transaction per record
// group. Works are keyed by (source, source_key); re-ingesting the same
// bundle is idempotent.
func (s *Store) IngestCorpus(ctx context.Context, corpus Corpus, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, inst := range corpus.Institutions {
		if err := s.UpsertInstitution(ctx, inst); err != nil {
			fmt.Fprintf(w, "failed  institution %s: %v\n", inst.InstitutionID, err)
			summary.Failed++
			continue
		}
		summary.Institutions++
	}

	for _, doc := range corpus.Doctors {
		if err := s.UpsertDoctor(ctx, doc); err != nil {
			fmt.Fprintf(w, "failed  doctor %s: %v\n", doc.DoctorID, err)
			summary.Failed++
			continue
		}
		summary.Doctors++
	}

	for _, work := range corpus.Works {
		vec := corpus.Embeddings[work.WorkID]
		if err := s.UpsertWork(ctx, work, vec); err != nil {
			fmt.Fprintf(w, "failed  work %s/%s: %v\n", work.Source, work.SourceKey, err)
			summary.Failed++
			continue
		}
		summary.Works++
	}

	for _, link := range corpus.Links {
		if err := s.LinkDoctorWork(ctx, link); err != nil {
			fmt.Fprintf(w, "failed  link %s->%s: %v\n", link.DoctorID, link.WorkID, err)
			summary.Failed++
			continue
		}
		summary.Links++
	}

	for _, aff := range corpus.Affiliations {
		if err := s.LinkAffiliation(ctx, aff); err != nil {
			fmt.Fprintf(w, "failed  affiliation %s->%s: %v\n", aff.DoctorID, aff.InstitutionID, err)
			summary.Failed++
		}
	}

	for _, wi := range corpus.WorkInsts {
		if err := s.LinkWorkInstitution(ctx, wi); err != nil {
			fmt.Fprintf(w, "failed  work-institution %s->%s: %v\n", wi.WorkID, wi.InstitutionID, err)
			summary.Failed++
		}
	}

	fmt.Fprintf(w, "ingested: %d works, %d doctors, %d institutions, %d links, %d failed\n",
		summary.Works, summary.Doctors, summary.Institutions, summary.Links, summary.Failed)
	return summary, nil
}

// UpsertWork inserts or updates a work by its (source, source_key)
// identity. A non-nil vector replaces the stored embedding.
func (s *Store) UpsertWork(ctx context.Context, work types.Work, vector []float32) error {
	if work.WorkID == "" || work.Source == "" || work.SourceKey == "" {
		return fmt.Errorf("work requires work_id, source, and source_key")
	}

	meshJSON, _ := json.Marshal(work.MeSHTerms)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO work (work_id, source, source_key, title, abstract, year, doi,
			mesh_terms, country, citation_count, url, raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source, source_key) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, year=excluded.year,
			doi=excluded.doi, mesh_terms=excluded.mesh_terms, country=excluded.country,
			citation_count=excluded.citation_count, url=excluded.url, raw=excluded.raw`,
		work.WorkID, work.Source, work.SourceKey, work.Title, work.Abstract,
		work.Year, work.DOI, string(meshJSON), work.Country,
		work.CitationCount, work.URL, work.Raw,
	)
	if err != nil {
		return fmt.Errorf("upserting work: %w", err)
	}

	if vector != nil {
		vecJSON, err := json.Marshal(vector)
		if err != nil {
			return fmt.Errorf("marshaling embedding: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO work_embedding (work_id, vector) VALUES (?, ?)
			 ON CONFLICT(work_id) DO UPDATE SET vector=excluded.vector`,
			work.WorkID, string(vecJSON),
		)
		if err != nil {
			return fmt.Errorf("upserting embedding: %w", err)
		}
	}

	return tx.Commit()
}

// UpsertDoctor inserts or updates a doctor record.
func (s *Store) UpsertDoctor(ctx context.Context, doc types.Doctor) error {
	if doc.DoctorID == "" || doc.FullName == "" {
		return fmt.Errorf("doctor requires doctor_id and full_name")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO doctor (doctor_id, full_name, orcid, npi, primary_specialty)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(doctor_id) DO UPDATE SET
			full_name=excluded.full_name, orcid=excluded.orcid, npi=excluded.npi,
			primary_specialty=excluded.primary_specialty`,
		doc.DoctorID, doc.FullName, doc.ORCID, doc.NPI, doc.PrimarySpecialty,
	)
	if err != nil {
		return fmt.Errorf("upserting doctor: %w", err)
	}
	return nil
}

// UpsertInstitution inserts or updates an institution record.
func (s *Store) UpsertInstitution(ctx context.Context, inst types.Institution) error {
	if inst.InstitutionID == "" || inst.Name == "" {
		return fmt.Errorf("institution requires institution_id and name")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO institution (institution_id, name, city, state, country)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(institution_id) DO UPDATE SET
			name=excluded.name, city=excluded.city, state=excluded.state,
			country=excluded.country`,
		inst.InstitutionID, inst.Name, inst.City, inst.State, inst.Country,
	)
	if err != nil {
		return fmt.Errorf("upserting institution: %w", err)
	}
	return nil
}

// LinkDoctorWork records authorship of a work by a doctor.
func (s *Store) LinkDoctorWork(ctx context.Context, link types.DoctorWorkLink) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO doctor_work (doctor_id, work_id, author_position, is_pi)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(doctor_id, work_id) DO UPDATE SET
			author_position=excluded.author_position, is_pi=excluded.is_pi`,
		link.DoctorID, link.WorkID, link.AuthorPosition, boolToInt(link.IsPI),
	)
	if err != nil {
		return fmt.Errorf("linking doctor to work: %w", err)
	}
	return nil
}

// LinkAffiliation records a doctor's affiliation with an institution.
func (s *Store) LinkAffiliation(ctx context.Context, aff types.Affiliation) error {
	var endYear any
	if aff.EndYear > 0 {
		endYear = aff.EndYear
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO doctor_affiliation (doctor_id, institution_id, role, start_year, end_year)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(doctor_id, institution_id, role, start_year) DO UPDATE SET
			end_year=excluded.end_year`,
		aff.DoctorID, aff.InstitutionID, aff.Role, aff.StartYear, endYear,
	)
	if err != nil {
		return fmt.Errorf("linking affiliation: %w", err)
	}
	return nil
}

// LinkWorkInstitution records which institution a work was produced at.
func (s *Store) LinkWorkInstitution(ctx context.Context, link types.WorkInstitutionLink) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO work_institution (work_id, institution_id) VALUES (?, ?)`,
		link.WorkID, link.InstitutionID,
	)
	if err != nil {
		return fmt.Errorf("linking work to institution: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
