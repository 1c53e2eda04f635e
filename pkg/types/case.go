// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the matching engine.
// Implements: prd010-matching (CaseSpec, Work, MatchResult);
//
//	prd011-evidence-store (Doctor, Institution, link tables);
//	prd012-retrieval (QueryPack, WorkHit).
//
// See docs/ARCHITECTURE.md § Data Structures.
package types

import (
	"fmt"
	"time"
)

// Urgency classifies how quickly a case needs specialist attention.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// CaseCondition is the primary diagnosis with its ontology codes.
type CaseCondition struct {
	// Text is the condition name (e.g. "critical limb ischemia"). Mandatory.
	Text string `json:"text" yaml:"text"`

	// ICD10 is the ICD-10 code if resolved (e.g. "I70.25").
	ICD10 string `json:"icd10,omitempty" yaml:"icd10,omitempty"`

	// SNOMED is the SNOMED CT concept ID if resolved.
	SNOMED string `json:"snomed,omitempty" yaml:"snomed,omitempty"`

	// MeSH is the MeSH descriptor ID if resolved (e.g. "D016491").
	MeSH string `json:"mesh,omitempty" yaml:"mesh,omitempty"`
}

// CaseAnatomy locates the condition anatomically.
type CaseAnatomy struct {
	Site       string `json:"site,omitempty" yaml:"site,omitempty"`
	Laterality string `json:"laterality,omitempty" yaml:"laterality,omitempty"`

	// ArterialSegments lists named arterial or anatomical segments
	// (e.g. "anterior tibial", "popliteal").
	ArterialSegments []string `json:"arterial_segments,omitempty" yaml:"arterial_segments,omitempty"`
}

// PriorIntervention records a procedure the patient already had.
type PriorIntervention struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Status is "completed", "failed", or "planned".
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// DateApprox is an approximate date ("2024-03" or "2024").
	DateApprox string `json:"date_approx,omitempty" yaml:"date_approx,omitempty"`
}

// CaseSpec is a de-identified, structured medical case. It is produced by
// an external parsing collaborator and is read-only to the engine.
type CaseSpec struct {
	CaseID             string              `json:"case_id,omitempty" yaml:"case_id,omitempty"`
	Condition          CaseCondition       `json:"condition" yaml:"condition"`
	Anatomy            CaseAnatomy         `json:"anatomy" yaml:"anatomy"`
	PriorInterventions []PriorIntervention `json:"prior_interventions,omitempty" yaml:"prior_interventions,omitempty"`
	Comorbidities      []string            `json:"comorbidities,omitempty" yaml:"comorbidities,omitempty"`
	Goals              []string            `json:"goals,omitempty" yaml:"goals,omitempty"`
	Urgency            Urgency             `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	Keywords           []string            `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// DateAnchor is the year-month the case was prepared ("2025-09"). It
	// anchors the recency window so repeated matches on a stored case are
	// reproducible.
	DateAnchor string `json:"date_anchor,omitempty" yaml:"date_anchor,omitempty"`
}

// AnchorYear returns the year the recency window is anchored to: the
// DateAnchor year when set and parseable, otherwise the current year.
func (c CaseSpec) AnchorYear() int {
	if c.DateAnchor != "" {
		var year, month int
		if n, err := fmt.Sscanf(c.DateAnchor, "%d-%d", &year, &month); err == nil && n >= 1 && year > 0 {
			return year
		}
		if n, err := fmt.Sscanf(c.DateAnchor, "%d", &year); err == nil && n == 1 && year > 0 {
			return year
		}
	}
	return time.Now().UTC().Year()
}
