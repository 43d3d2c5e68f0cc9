// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graphstore

import (
	"context"
	"fmt"
	"strings"
)

const defaultSearchLimit = 20

// PropositionQuery holds parameters for proposition lookups.
type PropositionQuery struct {
	// Query is an FTS5 match expression over text summaries. Empty lists
	// propositions in document order.
	Query string

	DocID string

	// Limit caps the result count. Zero uses 20.
	Limit int
}

// PropositionHit is one stored proposition with its window.
type PropositionHit struct {
	DocID       string  `json:"doc_id" yaml:"doc_id"`
	WindowID    string  `json:"window_id" yaml:"window_id"`
	WindowIndex int     `json:"window_index" yaml:"window_index"`
	PropID      string  `json:"prop_id" yaml:"prop_id"`
	TextSummary string  `json:"text_summary" yaml:"text_summary"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
}

// SearchPropositions finds stored propositions. Full-text queries are
// ranked by relevance; otherwise results follow document and window order.
func (s *Store) SearchPropositions(ctx context.Context, q PropositionQuery) ([]PropositionHit, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = q.Query != ""
	)
	if useFTS {
		qb.WriteString(
			`SELECT w.doc_id, w.window_id, w.window_index, p.prop_id, p.text_summary, p.confidence
			FROM propositions_fts
			JOIN propositions p ON p.rowid = propositions_fts.rowid
			JOIN windows w ON w.window_id = p.window_id
			WHERE propositions_fts MATCH ?`)
		args = append(args, q.Query)
	} else {
		qb.WriteString(
			`SELECT w.doc_id, w.window_id, w.window_index, p.prop_id, p.text_summary, p.confidence
			FROM propositions p
			JOIN windows w ON w.window_id = p.window_id
			WHERE 1=1`)
	}
	if q.DocID != "" {
		qb.WriteString(` AND w.doc_id = ?`)
		args = append(args, q.DocID)
	}
	if useFTS {
		qb.WriteString(` ORDER BY propositions_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY w.doc_id, w.window_index, p.seq`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching propositions: %w", err)
	}
	defer rows.Close()

	var hits []PropositionHit
	for rows.Next() {
		var h PropositionHit
		if err := rows.Scan(&h.DocID, &h.WindowID, &h.WindowIndex, &h.PropID, &h.TextSummary, &h.Confidence); err != nil {
			return nil, fmt.Errorf("scanning proposition: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
