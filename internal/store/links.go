// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/meshintel/match-engine/pkg/types"
)

// LinksForWorks returns the doctor-work links for the given works.
func (s *Store) LinksForWorks(ctx context.Context, workIDs []string) ([]types.DoctorWorkLink, error) {
	var links []types.DoctorWorkLink
	err := s.chunkedQuery(ctx, workIDs,
		`SELECT doctor_id, work_id, COALESCE(author_position, 0), COALESCE(is_pi, 0)
		 FROM doctor_work WHERE work_id IN (%s)`,
		func(rows *sql.Rows) error {
			var link types.DoctorWorkLink
			var isPI int
			if err := rows.Scan(&link.DoctorID, &link.WorkID, &link.AuthorPosition, &isPI); err != nil {
				return fmt.Errorf("scanning doctor-work link: %w", err)
			}
			link.IsPI = isPI != 0
			links = append(links, link)
			return nil
		})
	return links, err
}

// AffiliationsForDoctors returns all affiliation records for the given
// doctors.
func (s *Store) AffiliationsForDoctors(ctx context.Context, doctorIDs []string) ([]types.Affiliation, error) {
	var affs []types.Affiliation
	err := s.chunkedQuery(ctx, doctorIDs,
		`SELECT doctor_id, institution_id, role, start_year, COALESCE(end_year, 0)
		 FROM doctor_affiliation WHERE doctor_id IN (%s)`,
		func(rows *sql.Rows) error {
			var aff types.Affiliation
			if err := rows.Scan(&aff.DoctorID, &aff.InstitutionID, &aff.Role, &aff.StartYear, &aff.EndYear); err != nil {
				return fmt.Errorf("scanning affiliation: %w", err)
			}
			affs = append(affs, aff)
			return nil
		})
	return affs, err
}

// InstitutionsForWorks returns the work-institution links for the given
// works.
func (s *Store) InstitutionsForWorks(ctx context.Context, workIDs []string) ([]types.WorkInstitutionLink, error) {
	var links []types.WorkInstitutionLink
	err := s.chunkedQuery(ctx, workIDs,
		`SELECT work_id, institution_id FROM work_institution WHERE work_id IN (%s)`,
		func(rows *sql.Rows) error {
			var link types.WorkInstitutionLink
			if err := rows.Scan(&link.WorkID, &link.InstitutionID); err != nil {
				return fmt.Errorf("scanning work-institution link: %w", err)
			}
			links = append(links, link)
			return nil
		})
	return links, err
}

// DoctorsByIDs returns the doctor records for the given IDs, keyed by
// doctor ID.
func (s *Store) DoctorsByIDs(ctx context.Context, doctorIDs []string) (map[string]types.Doctor, error) {
	doctors := make(map[string]types.Doctor, len(doctorIDs))
	err := s.chunkedQuery(ctx, doctorIDs,
		`SELECT doctor_id, full_name, COALESCE(orcid, ''), COALESCE(npi, ''),
			COALESCE(primary_specialty, '')
		 FROM doctor WHERE doctor_id IN (%s)`,
		func(rows *sql.Rows) error {
			var doc types.Doctor
			if err := rows.Scan(&doc.DoctorID, &doc.FullName, &doc.ORCID, &doc.NPI, &doc.PrimarySpecialty); err != nil {
				return fmt.Errorf("scanning doctor: %w", err)
			}
			doctors[doc.DoctorID] = doc
			return nil
		})
	return doctors, err
}

// InstitutionsByIDs returns the institution records for the given IDs,
// keyed by institution ID.
func (s *Store) InstitutionsByIDs(ctx context.Context, institutionIDs []string) (map[string]types.Institution, error) {
	insts := make(map[string]types.Institution, len(institutionIDs))
	err := s.chunkedQuery(ctx, institutionIDs,
		`SELECT institution_id, name, COALESCE(city, ''), COALESCE(state, ''),
			COALESCE(country, '')
		 FROM institution WHERE institution_id IN (%s)`,
		func(rows *sql.Rows) error {
			var inst types.Institution
			if err := rows.Scan(&inst.InstitutionID, &inst.Name, &inst.City, &inst.State, &inst.Country); err != nil {
				return fmt.Errorf("scanning institution: %w", err)
			}
			insts[inst.InstitutionID] = inst
			return nil
		})
	return insts, err
}

// chunkedQuery runs an IN-list query in chunks, calling scan for each row.
// The query template must contain one %s for the placeholder list.
func (s *Store) chunkedQuery(ctx context.Context, ids []string, queryTemplate string, scan func(*sql.Rows) error) error {
	if len(ids) == 0 {
		return nil
	}

	const chunkSize = 500
	for start := 0; start < len(ids); start += chunkSize {
		end := min(start+chunkSize, len(ids))
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(queryTemplate, placeholders), args...)
		if err != nil {
			return fmt.Errorf("querying: %w", err)
		}

		for rows.Next() {
			if err := scan(rows); err != nil {
				rows.Close()
				return err
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}
