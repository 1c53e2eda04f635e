// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the evidence corpus: works, doctors, institutions,
// their link tables, precomputed embeddings, and match runs.
// Implements: prd011-evidence-store (R1-R5);
//
//	docs/ARCHITECTURE § Evidence Store.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the evidence SQLite database. Reads during a match are
// safe against concurrent ingestion because all writes are upserts keyed
// by unique identifiers inside transactions.
type Store struct {
	db *sql.DB
}

// Open opens or creates the evidence database at path, creating the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS work (
			work_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			source_key TEXT NOT NULL,
			title TEXT,
			abstract TEXT,
			year INTEGER,
			doi TEXT,
			mesh_terms TEXT,
			country TEXT,
			citation_count INTEGER DEFAULT 0,
			url TEXT,
			raw TEXT,
			UNIQUE(source, source_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_work_source_year ON work(source, year)`,
		`CREATE TABLE IF NOT EXISTS work_embedding (
			work_id TEXT PRIMARY KEY REFERENCES work(work_id),
			vector TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS doctor (
			doctor_id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			orcid TEXT,
			npi TEXT,
			primary_specialty TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS institution (
			institution_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			city TEXT,
			state TEXT,
			country TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS doctor_work (
			doctor_id TEXT NOT NULL REFERENCES doctor(doctor_id),
			work_id TEXT NOT NULL REFERENCES work(work_id),
			author_position INTEGER,
			is_pi INTEGER DEFAULT 0,
			PRIMARY KEY (doctor_id, work_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_doctor_work_work ON doctor_work(work_id)`,
		`CREATE TABLE IF NOT EXISTS doctor_affiliation (
			doctor_id TEXT NOT NULL REFERENCES doctor(doctor_id),
			institution_id TEXT NOT NULL REFERENCES institution(institution_id),
			role TEXT NOT NULL DEFAULT '',
			start_year INTEGER NOT NULL DEFAULT 0,
			end_year INTEGER,
			PRIMARY KEY (doctor_id, institution_id, role, start_year)
		)`,
		`CREATE TABLE IF NOT EXISTS work_institution (
			work_id TEXT NOT NULL REFERENCES work(work_id),
			institution_id TEXT NOT NULL REFERENCES institution(institution_id),
			PRIMARY KEY (work_id, institution_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_work_institution_inst ON work_institution(institution_id)`,
		`CREATE TABLE IF NOT EXISTS match_run (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			partial INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_run_case ON match_run(case_id)`,
		`CREATE TABLE IF NOT EXISTS match_candidate (
			run_id INTEGER NOT NULL REFERENCES match_run(run_id),
			doctor_id TEXT NOT NULL,
			total_score REAL NOT NULL,
			doctor_score REAL NOT NULL,
			institution_score REAL NOT NULL,
			components TEXT NOT NULL,
			explanation TEXT,
			PRIMARY KEY (run_id, doctor_id)
		)`,
		`CREATE TABLE IF NOT EXISTS match_evidence (
			run_id INTEGER NOT NULL,
			doctor_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL,
			source_key TEXT NOT NULL,
			title TEXT,
			year INTEGER,
			doi TEXT,
			url TEXT,
			relevance REAL,
			role TEXT,
			institutional INTEGER DEFAULT 0,
			PRIMARY KEY (run_id, doctor_id, seq)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
