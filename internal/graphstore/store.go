// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graphstore persists accepted extraction windows, their soft
// warnings and rejected-window error records in SQLite, and exports the
// stored graph as YAML or JSON.
package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/pkg/types"
)

const dbFile = "argmap.db"

// Store manages the graph database. It implements extract.Sink.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// NewStore opens or creates dir/argmap.db and its schema.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
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

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS windows (
			window_id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			edition_id TEXT,
			window_index INTEGER NOT NULL,
			paragraph_ids TEXT NOT NULL,
			retrieved_prop_ids TEXT,
			confidence REAL,
			saved_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_windows_doc ON windows(doc_id, window_index)`,
		`CREATE TABLE IF NOT EXISTS locutions (
			window_id TEXT NOT NULL REFERENCES windows(window_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			loc_id TEXT NOT NULL,
			doc_id TEXT,
			text TEXT NOT NULL,
			start_char INTEGER,
			end_char INTEGER,
			paragraph_id TEXT NOT NULL,
			sentence_id TEXT,
			section_path TEXT,
			is_footnote INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (window_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS transitions (
			window_id TEXT NOT NULL REFERENCES windows(window_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			marker TEXT NOT NULL,
			hint TEXT NOT NULL,
			paragraph_index INTEGER,
			position INTEGER,
			PRIMARY KEY (window_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS propositions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			window_id TEXT NOT NULL REFERENCES windows(window_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			prop_id TEXT NOT NULL,
			text_summary TEXT NOT NULL,
			surface_loc_ids TEXT NOT NULL,
			concept_bindings TEXT,
			entity_bindings TEXT,
			temporal_scope TEXT,
			is_implicit_reconstruction INTEGER NOT NULL DEFAULT 0,
			confidence REAL,
			UNIQUE (window_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS illocutions (
			window_id TEXT NOT NULL REFERENCES windows(window_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			illoc_id TEXT NOT NULL,
			source_loc_id TEXT NOT NULL,
			target_prop_id TEXT NOT NULL,
			force TEXT NOT NULL,
			attributed_to TEXT,
			is_implicit_opponent INTEGER NOT NULL DEFAULT 0,
			confidence REAL,
			PRIMARY KEY (window_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS relations (
			window_id TEXT NOT NULL REFERENCES windows(window_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			rel_id TEXT NOT NULL,
			relation_type TEXT NOT NULL,
			source_prop_ids TEXT NOT NULL,
			target_prop_id TEXT NOT NULL,
			conflict_detail TEXT,
			targets_inference INTEGER NOT NULL DEFAULT 0,
			evidence_loc_ids TEXT NOT NULL,
			scheme_type TEXT,
			confidence REAL,
			PRIMARY KEY (window_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS warnings (
			id TEXT PRIMARY KEY,
			window_id TEXT NOT NULL REFERENCES windows(window_id) ON DELETE CASCADE,
			doc_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			check_name TEXT NOT NULL,
			message TEXT NOT NULL,
			detail TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS extraction_errors (
			id TEXT PRIMARY KEY,
			window_id TEXT,
			doc_id TEXT,
			kind TEXT NOT NULL,
			stage TEXT NOT NULL,
			message TEXT NOT NULL,
			detail TEXT,
			retry_count INTEGER NOT NULL,
			suggested_recovery TEXT,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_errors_doc ON extraction_errors(doc_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 index over proposition summaries, kept in sync by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='propositions_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE propositions_fts USING fts5(text_summary, content=propositions, content_rowid=rowid)`,
			`CREATE TRIGGER propositions_ai AFTER INSERT ON propositions BEGIN
				INSERT INTO propositions_fts(rowid, text_summary) VALUES (new.rowid, new.text_summary);
			END`,
			`CREATE TRIGGER propositions_ad AFTER DELETE ON propositions BEGIN
				INSERT INTO propositions_fts(propositions_fts, rowid, text_summary) VALUES('delete', old.rowid, old.text_summary);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveWindow stores an accepted window and its soft warnings in one
// transaction. Saving a window id again replaces the earlier copy.
func (s *Store) SaveWindow(ctx context.Context, w types.ExtractionWindow, res types.ValidationResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Propositions go first so the FTS delete trigger sees them.
	if _, err := tx.ExecContext(ctx, `DELETE FROM propositions WHERE window_id = ?`, w.WindowID); err != nil {
		return fmt.Errorf("deleting old propositions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM windows WHERE window_id = ?`, w.WindowID); err != nil {
		return fmt.Errorf("deleting old window: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO windows (window_id, doc_id, edition_id, window_index, paragraph_ids, retrieved_prop_ids, confidence, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.WindowID, w.DocID, w.EditionID, w.WindowIndex,
		jsonText(w.ParagraphIDs), jsonText(w.RetrievedPropIDs), w.Confidence,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting window %s: %w", w.WindowID, err)
	}

	for i, l := range w.Locutions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO locutions (window_id, seq, loc_id, doc_id, text, start_char, end_char, paragraph_id, sentence_id, section_path, is_footnote)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.WindowID, i, l.ID, l.DocID, l.Text, l.StartChar, l.EndChar,
			l.ParagraphID, l.SentenceID, jsonText(l.SectionPath), l.IsFootnote,
		)
		if err != nil {
			return fmt.Errorf("inserting locution %s: %w", l.ID, err)
		}
	}

	for i, t := range w.Transitions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transitions (window_id, seq, marker, hint, paragraph_index, position) VALUES (?, ?, ?, ?, ?, ?)`,
			w.WindowID, i, t.Marker, string(t.Hint), t.ParagraphIndex, t.Position,
		)
		if err != nil {
			return fmt.Errorf("inserting transition %d: %w", i, err)
		}
	}

	for i, p := range w.Propositions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO propositions (window_id, seq, prop_id, text_summary, surface_loc_ids, concept_bindings, entity_bindings, temporal_scope, is_implicit_reconstruction, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.WindowID, i, p.ID, p.TextSummary, jsonText(p.SurfaceLocIDs),
			jsonText(p.ConceptBindings), jsonText(p.EntityBindings),
			p.TemporalScope, p.IsImplicitReconstruction, p.Confidence,
		)
		if err != nil {
			return fmt.Errorf("inserting proposition %s: %w", p.ID, err)
		}
	}

	for i, il := range w.Illocutions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO illocutions (window_id, seq, illoc_id, source_loc_id, target_prop_id, force, attributed_to, is_implicit_opponent, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.WindowID, i, il.ID, il.SourceLocID, il.TargetPropID, string(il.Force),
			il.AttributedTo, il.IsImplicitOpponent, il.Confidence,
		)
		if err != nil {
			return fmt.Errorf("inserting illocution %s: %w", il.ID, err)
		}
	}

	for i, r := range w.Relations {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO relations (window_id, seq, rel_id, relation_type, source_prop_ids, target_prop_id, conflict_detail, targets_inference, evidence_loc_ids, scheme_type, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.WindowID, i, r.ID, string(r.Type), jsonText(r.SourcePropIDs), r.TargetPropID,
			string(r.ConflictDetail), r.TargetsInference, jsonText(r.EvidenceLocIDs),
			r.SchemeType, r.Confidence,
		)
		if err != nil {
			return fmt.Errorf("inserting relation %s: %w", r.ID, err)
		}
	}

	for i, issue := range res.SoftWarnings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO warnings (id, window_id, doc_id, seq, check_name, message, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), w.WindowID, w.DocID, i, string(issue.Check), issue.Message, jsonText(issue.Detail),
		)
		if err != nil {
			return fmt.Errorf("inserting warning %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// RecordFailures appends one audit row per error.
func (s *Store) RecordFailures(ctx context.Context, errs []*failure.ExtractionError) error {
	if len(errs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	recordedAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, xe := range errs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO extraction_errors (id, window_id, doc_id, kind, stage, message, detail, retry_count, suggested_recovery, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), xe.WindowID, xe.DocID, string(xe.Kind), xe.Stage, xe.Message,
			jsonText(xe.Detail), xe.RetryCount, xe.SuggestedRecovery, recordedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting %s record: %w", xe.Kind, err)
		}
	}
	return tx.Commit()
}

// jsonText encodes v for a TEXT column. Nil slices and maps become NULL.
func jsonText(v any) any {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return nil
	}
	return string(data)
}

// decodeJSON decodes a nullable TEXT column into dst.
func decodeJSON(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}
