// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meshintel/match-engine/pkg/types"
)

// Sources returns the distinct source names present in the corpus.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM work ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// FilterWorks returns the works of one source that satisfy the symbolic
// predicates. The year gate admits works with an unknown year; MeSH
// membership requires at least one shared descriptor.
func (s *Store) FilterWorks(ctx context.Context, source string, pred types.Predicates) ([]types.Work, error) {
	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(
		`SELECT work_id, source, source_key, title, abstract, year, doi,
			mesh_terms, country, citation_count, url
		FROM work WHERE source = ?`)
	args = append(args, source)

	if pred.MinYear > 0 {
		qb.WriteString(` AND (year IS NULL OR year = 0 OR year >= ?)`)
		args = append(args, pred.MinYear)
	}

	if len(pred.MeSHTerms) > 0 {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(work.mesh_terms) WHERE value IN (`)
		for i, term := range pred.MeSHTerms {
			if i > 0 {
				qb.WriteString(`,`)
			}
			qb.WriteString(`?`)
			args = append(args, term)
		}
		qb.WriteString(`))`)
	}

	if len(pred.Countries) > 0 {
		qb.WriteString(` AND country IN (`)
		for i, country := range pred.Countries {
			if i > 0 {
				qb.WriteString(`,`)
			}
			qb.WriteString(`?`)
			args = append(args, country)
		}
		qb.WriteString(`)`)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("filtering works for %s: %w", source, err)
	}
	defer rows.Close()

	var works []types.Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, work)
	}
	return works, rows.Err()
}

// Embeddings returns the stored vectors for the given works. Works
// without a stored embedding are absent from the map.
func (s *Store) Embeddings(ctx context.Context, workIDs []string) (map[string][]float32, error) {
	vectors := make(map[string][]float32, len(workIDs))
	err := s.chunkedQuery(ctx, workIDs,
		`SELECT work_id, vector FROM work_embedding WHERE work_id IN (%s)`,
		func(rows *sql.Rows) error {
			var workID, vecJSON string
			if err := rows.Scan(&workID, &vecJSON); err != nil {
				return fmt.Errorf("scanning embedding: %w", err)
			}
			var vec []float32
			if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
				return fmt.Errorf("parsing embedding for %s: %w", workID, err)
			}
			vectors[workID] = vec
			return nil
		})
	return vectors, err
}

// HasEmbeddings reports whether any work of the source carries a stored
// vector. Sources without vectors run in degraded symbolic-only mode.
func (s *Store) HasEmbeddings(ctx context.Context, source string) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM work_embedding e JOIN work w ON w.work_id = e.work_id
			WHERE w.source = ?)`, source,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("checking embeddings for %s: %w", source, err)
	}
	return found, nil
}

func scanWork(rows *sql.Rows) (types.Work, error) {
	var (
		work      types.Work
		title     sql.NullString
		abstract  sql.NullString
		year      sql.NullInt64
		doi       sql.NullString
		meshJSON  sql.NullString
		country   sql.NullString
		citations sql.NullInt64
		url       sql.NullString
	)

	if err := rows.Scan(
		&work.WorkID, &work.Source, &work.SourceKey, &title, &abstract,
		&year, &doi, &meshJSON, &country, &citations, &url,
	); err != nil {
		return types.Work{}, fmt.Errorf("scanning work: %w", err)
	}

	work.Title = title.String
	work.Abstract = abstract.String
	work.Year = int(year.Int64)
	work.DOI = doi.String
	work.Country = country.String
	work.CitationCount = int(citations.Int64)
	work.URL = url.String
	if meshJSON.Valid && meshJSON.String != "" {
		if err := json.Unmarshal([]byte(meshJSON.String), &work.MeSHTerms); err != nil {
			return types.Work{}, fmt.Errorf("parsing mesh terms for %s: %w", work.WorkID, err)
		}
	}
	return work, nil
}
