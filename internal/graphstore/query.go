// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/pkg/types"
)

// ErrNotFound is returned when a window id is not stored.
var ErrNotFound = errors.New("not found")

// AuditQuery filters audit listings. Zero fields match everything.
type AuditQuery struct {
	DocID    string
	WindowID string
	Kind     failure.Kind
	Check    types.CheckName
}

// WarningRecord is a stored soft warning with its window.
type WarningRecord struct {
	WindowID string      `json:"window_id" yaml:"window_id"`
	DocID    string      `json:"doc_id" yaml:"doc_id"`
	Issue    types.Issue `json:"issue" yaml:"issue"`
}

// FailureRecord is a stored ExtractionError.
type FailureRecord struct {
	failure.ExtractionError `yaml:",inline"`
	RecordedAt              time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// ListWarnings returns stored soft warnings ordered by document, window
// and the order the validator raised them in.
func (s *Store) ListWarnings(ctx context.Context, q AuditQuery) ([]WarningRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT w.window_id, w.doc_id, w.check_name, w.message, w.detail
		FROM warnings w
		JOIN windows win ON win.window_id = w.window_id
		WHERE 1=1`)
	if q.DocID != "" {
		qb.WriteString(` AND w.doc_id = ?`)
		args = append(args, q.DocID)
	}
	if q.WindowID != "" {
		qb.WriteString(` AND w.window_id = ?`)
		args = append(args, q.WindowID)
	}
	if q.Check != "" {
		qb.WriteString(` AND w.check_name = ?`)
		args = append(args, string(q.Check))
	}
	qb.WriteString(` ORDER BY w.doc_id, win.window_index, w.seq`)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying warnings: %w", err)
	}
	defer rows.Close()

	var out []WarningRecord
	for rows.Next() {
		var (
			rec    WarningRecord
			check  string
			detail sql.NullString
		)
		if err := rows.Scan(&rec.WindowID, &rec.DocID, &check, &rec.Issue.Message, &detail); err != nil {
			return nil, fmt.Errorf("scanning warning: %w", err)
		}
		rec.Issue.Check = types.CheckName(check)
		if err := decodeJSON(detail, &rec.Issue.Detail); err != nil {
			return nil, fmt.Errorf("decoding warning detail: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListFailures returns stored error records, oldest first.
func (s *Store) ListFailures(ctx context.Context, q AuditQuery) ([]FailureRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT window_id, doc_id, kind, stage, message, detail, retry_count, suggested_recovery, recorded_at
		FROM extraction_errors
		WHERE 1=1`)
	if q.DocID != "" {
		qb.WriteString(` AND doc_id = ?`)
		args = append(args, q.DocID)
	}
	if q.WindowID != "" {
		qb.WriteString(` AND window_id = ?`)
		args = append(args, q.WindowID)
	}
	if q.Kind != "" {
		qb.WriteString(` AND kind = ?`)
		args = append(args, string(q.Kind))
	}
	qb.WriteString(` ORDER BY recorded_at, rowid`)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var (
			rec                       FailureRecord
			windowID, docID, recovery sql.NullString
			kind, detail              sql.NullString
			recordedAt                string
		)
		if err := rows.Scan(&windowID, &docID, &kind, &rec.Stage, &rec.Message, &detail,
			&rec.RetryCount, &recovery, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		rec.WindowID = windowID.String
		rec.DocID = docID.String
		rec.Kind = failure.Kind(kind.String)
		rec.SuggestedRecovery = recovery.String
		if err := decodeJSON(detail, &rec.Detail); err != nil {
			return nil, fmt.Errorf("decoding failure detail: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			rec.RecordedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Window loads one stored window.
func (s *Store) Window(ctx context.Context, windowID string) (types.ExtractionWindow, error) {
	windows, err := s.loadWindows(ctx, `WHERE window_id = ?`, windowID)
	if err != nil {
		return types.ExtractionWindow{}, err
	}
	if len(windows) == 0 {
		return types.ExtractionWindow{}, fmt.Errorf("window %s: %w", windowID, ErrNotFound)
	}
	return windows[0], nil
}

// Windows loads the stored windows of docID in window order, or of every
// document when docID is empty.
func (s *Store) Windows(ctx context.Context, docID string) ([]types.ExtractionWindow, error) {
	if docID == "" {
		return s.loadWindows(ctx, ``)
	}
	return s.loadWindows(ctx, `WHERE doc_id = ?`, docID)
}

func (s *Store) loadWindows(ctx context.Context, where string, args ...any) ([]types.ExtractionWindow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT window_id, doc_id, edition_id, window_index, paragraph_ids, retrieved_prop_ids, confidence
		FROM windows `+where+` ORDER BY doc_id, window_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying windows: %w", err)
	}

	var windows []types.ExtractionWindow
	for rows.Next() {
		var (
			w                  types.ExtractionWindow
			edition            sql.NullString
			paraIDs, retrieved sql.NullString
			confidence         sql.NullFloat64
		)
		if err := rows.Scan(&w.WindowID, &w.DocID, &edition, &w.WindowIndex, &paraIDs, &retrieved, &confidence); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning window: %w", err)
		}
		w.EditionID = edition.String
		w.Confidence = confidence.Float64
		if err := decodeJSON(paraIDs, &w.ParagraphIDs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding paragraph ids: %w", err)
		}
		if err := decodeJSON(retrieved, &w.RetrievedPropIDs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding retrieved ids: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range windows {
		if err := s.loadFragment(ctx, &windows[i]); err != nil {
			return nil, fmt.Errorf("window %s: %w", windows[i].WindowID, err)
		}
	}
	return windows, nil
}

// loadFragment fills the five graph arrays of w. Arrays are never nil so
// a reloaded window validates like the original.
func (s *Store) loadFragment(ctx context.Context, w *types.ExtractionWindow) error {
	w.Fragment = types.Fragment{
		Locutions:    []types.Locution{},
		Transitions:  []types.Transition{},
		Propositions: []types.Proposition{},
		Illocutions:  []types.IllocutionaryEdge{},
		Relations:    []types.ArgumentRelation{},
	}

	err := s.each(ctx, `SELECT loc_id, doc_id, text, start_char, end_char, paragraph_id, sentence_id, section_path, is_footnote
		FROM locutions WHERE window_id = ? ORDER BY seq`, w.WindowID, func(rows *sql.Rows) error {
		var (
			l                     types.Locution
			docID, sentence, path sql.NullString
		)
		if err := rows.Scan(&l.ID, &docID, &l.Text, &l.StartChar, &l.EndChar, &l.ParagraphID, &sentence, &path, &l.IsFootnote); err != nil {
			return err
		}
		l.DocID = docID.String
		l.SentenceID = sentence.String
		if err := decodeJSON(path, &l.SectionPath); err != nil {
			return err
		}
		w.Locutions = append(w.Locutions, l)
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading locutions: %w", err)
	}

	err = s.each(ctx, `SELECT marker, hint, paragraph_index, position
		FROM transitions WHERE window_id = ? ORDER BY seq`, w.WindowID, func(rows *sql.Rows) error {
		var (
			t    types.Transition
			hint string
		)
		if err := rows.Scan(&t.Marker, &hint, &t.ParagraphIndex, &t.Position); err != nil {
			return err
		}
		t.Hint = types.TransitionHint(hint)
		w.Transitions = append(w.Transitions, t)
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading transitions: %w", err)
	}

	err = s.each(ctx, `SELECT prop_id, text_summary, surface_loc_ids, concept_bindings, entity_bindings, temporal_scope, is_implicit_reconstruction, confidence
		FROM propositions WHERE window_id = ? ORDER BY seq`, w.WindowID, func(rows *sql.Rows) error {
		var (
			p                           types.Proposition
			surface, concepts, entities sql.NullString
			scope                       sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.TextSummary, &surface, &concepts, &entities, &scope, &p.IsImplicitReconstruction, &p.Confidence); err != nil {
			return err
		}
		p.TemporalScope = scope.String
		p.SurfaceLocIDs = []string{}
		for _, f := range []struct {
			src sql.NullString
			dst any
		}{{surface, &p.SurfaceLocIDs}, {concepts, &p.ConceptBindings}, {entities, &p.EntityBindings}} {
			if err := decodeJSON(f.src, f.dst); err != nil {
				return err
			}
		}
		w.Propositions = append(w.Propositions, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading propositions: %w", err)
	}

	err = s.each(ctx, `SELECT illoc_id, source_loc_id, target_prop_id, force, attributed_to, is_implicit_opponent, confidence
		FROM illocutions WHERE window_id = ? ORDER BY seq`, w.WindowID, func(rows *sql.Rows) error {
		var (
			il           types.IllocutionaryEdge
			force        string
			attributedTo sql.NullString
		)
		if err := rows.Scan(&il.ID, &il.SourceLocID, &il.TargetPropID, &force, &attributedTo, &il.IsImplicitOpponent, &il.Confidence); err != nil {
			return err
		}
		il.Force = types.IllocutionForce(force)
		il.AttributedTo = attributedTo.String
		w.Illocutions = append(w.Illocutions, il)
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading illocutions: %w", err)
	}

	err = s.each(ctx, `SELECT rel_id, relation_type, source_prop_ids, target_prop_id, conflict_detail, targets_inference, evidence_loc_ids, scheme_type, confidence
		FROM relations WHERE window_id = ? ORDER BY seq`, w.WindowID, func(rows *sql.Rows) error {
		var (
			r                      types.ArgumentRelation
			relType                string
			sources, evidence      sql.NullString
			conflictDetail, scheme sql.NullString
		)
		if err := rows.Scan(&r.ID, &relType, &sources, &r.TargetPropID, &conflictDetail, &r.TargetsInference, &evidence, &scheme, &r.Confidence); err != nil {
			return err
		}
		r.Type = types.RelationType(relType)
		r.ConflictDetail = types.ConflictType(conflictDetail.String)
		r.SchemeType = scheme.String
		r.SourcePropIDs, r.EvidenceLocIDs = []string{}, []string{}
		if err := decodeJSON(sources, &r.SourcePropIDs); err != nil {
			return err
		}
		if err := decodeJSON(evidence, &r.EvidenceLocIDs); err != nil {
			return err
		}
		w.Relations = append(w.Relations, r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading relations: %w", err)
	}
	return nil
}

func (s *Store) each(ctx context.Context, query string, windowID string, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, windowID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
