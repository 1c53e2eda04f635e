// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meshintel/match-engine/pkg/types"
)

// ErrRunNotFound is returned by LoadCandidate when no persisted run
// matches the requested case and doctor.
var ErrRunNotFound = fmt.Errorf("match run not found")

// SaveMatchRun persists the outcome of a match operation so Explain can
// re-derive score breakdowns without re-running retrieval. It returns the
// run ID.
func (s *Store) SaveMatchRun(ctx context.Context, caseID string, out types.MatchOutput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO match_run (case_id, created_at, partial) VALUES (?, ?, ?)`,
		caseID, time.Now().UTC().Format(time.RFC3339), boolToInt(out.Diagnostics.Partial),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting match run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	candStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_candidate (run_id, doctor_id, total_score, doctor_score,
			institution_score, components, explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing candidate insert: %w", err)
	}
	defer candStmt.Close()

	evStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_evidence (run_id, doctor_id, seq, source, source_key,
			title, year, doi, url, relevance, role, institutional)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing evidence insert: %w", err)
	}
	defer evStmt.Close()

	for _, result := range out.Results {
		componentsJSON, _ := json.Marshal(result.Components)
		if _, err := candStmt.ExecContext(ctx,
			runID, result.DoctorID, result.TotalScore, result.DoctorScore,
			result.InstitutionScore, string(componentsJSON), result.Explanation,
		); err != nil {
			return 0, fmt.Errorf("inserting candidate %s: %w", result.DoctorID, err)
		}

		for seq, ev := range result.Evidence {
			if _, err := evStmt.ExecContext(ctx,
				runID, result.DoctorID, seq, ev.Type, ev.SourceKey,
				ev.Title, ev.Year, ev.DOI, ev.URL, ev.Relevance, ev.Role,
				boolToInt(ev.Institutional),
			); err != nil {
				return 0, fmt.Errorf("inserting evidence for %s: %w", result.DoctorID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing match run: %w", err)
	}
	return runID, nil
}

// LoadCandidate returns the persisted scores and evidence for one doctor
// from the most recent match run of a case.
func (s *Store) LoadCandidate(ctx context.Context, caseID, doctorID string) (types.ScoreBreakdown, error) {
	var (
		bd             types.ScoreBreakdown
		runID          int64
		componentsJSON string
		explanation    sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT r.run_id, c.total_score, c.doctor_score, c.institution_score,
			c.components, c.explanation
		 FROM match_run r
		 JOIN match_candidate c ON c.run_id = r.run_id
		 WHERE r.case_id = ? AND c.doctor_id = ?
		 ORDER BY r.run_id DESC LIMIT 1`,
		caseID, doctorID,
	).Scan(&runID, &bd.TotalScore, &bd.DoctorScore, &bd.InstitutionScore,
		&componentsJSON, &explanation)

	if err == sql.ErrNoRows {
		return types.ScoreBreakdown{}, fmt.Errorf("case %s, doctor %s: %w", caseID, doctorID, ErrRunNotFound)
	}
	if err != nil {
		return types.ScoreBreakdown{}, fmt.Errorf("loading candidate: %w", err)
	}

	bd.CaseID = caseID
	bd.DoctorID = doctorID
	bd.Explanation = explanation.String
	if err := json.Unmarshal([]byte(componentsJSON), &bd.Components); err != nil {
		return types.ScoreBreakdown{}, fmt.Errorf("parsing components: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, source_key, COALESCE(title, ''), COALESCE(year, 0),
			COALESCE(doi, ''), COALESCE(url, ''), COALESCE(relevance, 0),
			COALESCE(role, ''), COALESCE(institutional, 0)
		 FROM match_evidence
		 WHERE run_id = ? AND doctor_id = ?
		 ORDER BY seq`,
		runID, doctorID,
	)
	if err != nil {
		return types.ScoreBreakdown{}, fmt.Errorf("loading evidence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev types.Evidence
		var institutional int
		if err := rows.Scan(&ev.Type, &ev.SourceKey, &ev.Title, &ev.Year,
			&ev.DOI, &ev.URL, &ev.Relevance, &ev.Role, &institutional); err != nil {
			return types.ScoreBreakdown{}, fmt.Errorf("scanning evidence: %w", err)
		}
		ev.Institutional = institutional != 0
		bd.Evidence = append(bd.Evidence, ev)
	}
	return bd, rows.Err()
}
