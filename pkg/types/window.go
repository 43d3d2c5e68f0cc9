// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Paragraph is one unit of upstream text, in document order.
type Paragraph struct {
	ID       string `json:"id" yaml:"id"`
	Text     string `json:"text" yaml:"text"`
	Position int    `json:"position" yaml:"position"`
}

// Document is an ordered paragraph sequence for one edition of a work.
type Document struct {
	DocID      string      `json:"doc_id" yaml:"doc_id"`
	EditionID  string      `json:"edition_id" yaml:"edition_id"`
	Paragraphs []Paragraph `json:"paragraphs" yaml:"paragraphs"`
}

// RetrievalMethod names how a retrieved proposition was found.
type RetrievalMethod string

const (
	RetrievalVector          RetrievalMethod = "vector"
	RetrievalConceptOverlap  RetrievalMethod = "concept_overlap"
	RetrievalEntityAlignment RetrievalMethod = "entity_alignment"
)

// Valid reports whether m is a known retrieval method.
func (m RetrievalMethod) Valid() bool {
	switch m {
	case RetrievalVector, RetrievalConceptOverlap, RetrievalEntityAlignment:
		return true
	}
	return false
}

// RetrievedContext is a previously extracted proposition supplied for
// cross-window continuity. It is read-only: it can never be cited as a
// locution and never yields new locutions.
type RetrievedContext struct {
	PropID          string          `json:"prop_id" yaml:"prop_id"`
	TextSummary     string          `json:"text_summary" yaml:"text_summary"`
	SourceDocID     string          `json:"source_doc_id" yaml:"source_doc_id"`
	Position        int             `json:"position" yaml:"position"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method" yaml:"retrieval_method"`
	RetrievalScore  float64         `json:"retrieval_score" yaml:"retrieval_score"`
}

// ExtractionWindowInput is the document handed to the generation backend
// for one window of paragraphs.
type ExtractionWindowInput struct {
	WindowID  string `json:"window_id" yaml:"window_id"`
	EditionID string `json:"edition_id" yaml:"edition_id"`
	DocID     string `json:"doc_id" yaml:"doc_id"`

	// ParagraphIDs and Texts are parallel, in document order.
	ParagraphIDs []string `json:"paragraph_ids" yaml:"paragraph_ids"`
	Texts        []string `json:"texts" yaml:"texts"`

	Transitions      []Transition       `json:"transitions" yaml:"transitions"`
	RetrievedContext []RetrievedContext `json:"retrieved_context" yaml:"retrieved_context"`

	WindowIndex int `json:"window_index" yaml:"window_index"`

	// TotalWindows is an upper-bound estimate computed before small
	// trailing windows are merged; it may exceed the real count.
	TotalWindows int `json:"total_windows" yaml:"total_windows"`

	HasOverlapStart bool `json:"has_overlap_start" yaml:"has_overlap_start"`
	HasOverlapEnd   bool `json:"has_overlap_end" yaml:"has_overlap_end"`
}

// RetrievedPropIDs returns the set of retrieved-context proposition ids.
func (w ExtractionWindowInput) RetrievedPropIDs() map[string]bool {
	ids := make(map[string]bool, len(w.RetrievedContext))
	for _, rc := range w.RetrievedContext {
		if rc.PropID != "" {
			ids[rc.PropID] = true
		}
	}
	return ids
}

// ExtractionWindow is an accepted window: its input metadata and the
// validated graph fragment.
type ExtractionWindow struct {
	WindowID     string   `json:"window_id" yaml:"window_id"`
	DocID        string   `json:"doc_id" yaml:"doc_id"`
	EditionID    string   `json:"edition_id" yaml:"edition_id"`
	WindowIndex  int      `json:"window_index" yaml:"window_index"`
	ParagraphIDs []string `json:"paragraph_ids" yaml:"paragraph_ids"`

	Fragment `yaml:",inline"`

	// RetrievedPropIDs lists retrieved propositions the window could cite.
	RetrievedPropIDs []string `json:"retrieved_prop_ids,omitempty" yaml:"retrieved_prop_ids,omitempty"`

	// Confidence is the mean proposition confidence, 0 when there are none.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// NewExtractionWindow assembles an accepted window from its input and fragment.
func NewExtractionWindow(in ExtractionWindowInput, f Fragment) ExtractionWindow {
	w := ExtractionWindow{
		WindowID:     in.WindowID,
		DocID:        in.DocID,
		EditionID:    in.EditionID,
		WindowIndex:  in.WindowIndex,
		ParagraphIDs: append([]string(nil), in.ParagraphIDs...),
		Fragment:     f,
	}
	for _, rc := range in.RetrievedContext {
		w.RetrievedPropIDs = append(w.RetrievedPropIDs, rc.PropID)
	}
	if len(f.Propositions) > 0 {
		var sum float64
		for _, p := range f.Propositions {
			sum += p.Confidence
		}
		w.Confidence = sum / float64(len(f.Propositions))
	}
	return w
}
