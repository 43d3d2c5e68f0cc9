// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package window groups an ordered paragraph sequence into bounded,
// overlapping extraction windows and attaches discourse transitions.
package window

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pdiddy/argmap/internal/discourse"
	"github.com/pdiddy/argmap/pkg/types"
)

// ErrInvalidConfig is returned by New for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid window config")

// namespace seeds deterministic window ids.
var namespace = uuid.MustParse("5b0d7a3e-2f4c-4d1e-9a6b-8c3f1e2d4a70")

// Builder segments documents into windows. It holds no mutable state and
// is safe for concurrent use.
type Builder struct {
	cfg      types.WindowConfig
	detector *discourse.Detector
}

// New validates cfg and returns a Builder.
func New(cfg types.WindowConfig) (*Builder, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, detector: discourse.NewDetector()}, nil
}

// Validate checks min >= 1, max >= min and 0 <= overlap < max.
func Validate(cfg types.WindowConfig) error {
	switch {
	case cfg.MinParagraphs < 1:
		return fmt.Errorf("%w: min_paragraphs %d < 1", ErrInvalidConfig, cfg.MinParagraphs)
	case cfg.MaxParagraphs < cfg.MinParagraphs:
		return fmt.Errorf("%w: max_paragraphs %d < min_paragraphs %d", ErrInvalidConfig, cfg.MaxParagraphs, cfg.MinParagraphs)
	case cfg.Overlap < 0:
		return fmt.Errorf("%w: overlap %d < 0", ErrInvalidConfig, cfg.Overlap)
	case cfg.Overlap >= cfg.MaxParagraphs:
		return fmt.Errorf("%w: overlap %d must be below max_paragraphs %d", ErrInvalidConfig, cfg.Overlap, cfg.MaxParagraphs)
	}
	return nil
}

// Config returns the builder's configuration.
func (b *Builder) Config() types.WindowConfig { return b.cfg }

// Stride is the distance between window starts.
func (b *Builder) Stride() int { return b.cfg.MaxParagraphs - b.cfg.Overlap }

// span is a window under construction.
type span struct {
	paras         []types.Paragraph
	overlapStart  bool
	overlapEnd    bool
	firstParaID   string
	containsParas map[string]bool
}

// Build segments doc.Paragraphs into windows.
//
// Windows start every Stride() paragraphs and hold up to MaxParagraphs. A
// slice shorter than MinParagraphs is folded into the previous window
// (paragraphs the previous window already holds are not repeated); with no
// previous window it is dropped. has_overlap_end records whether the
// window's own slice ended before the last paragraph and is not changed by a
// merge. Retrieved context is copied into every window unchanged.
func (b *Builder) Build(doc types.Document, retrieved []types.RetrievedContext) []types.ExtractionWindowInput {
	paras := doc.Paragraphs
	n := len(paras)
	if n == 0 {
		return nil
	}
	stride := b.Stride()

	var spans []*span
	for offset := 0; offset < n; offset += stride {
		end := min(offset+b.cfg.MaxParagraphs, n)
		slice := paras[offset:end]

		if len(slice) < b.cfg.MinParagraphs {
			if len(spans) == 0 {
				continue
			}
			prev := spans[len(spans)-1]
			for _, p := range slice {
				if prev.containsParas[p.ID] {
					continue
				}
				prev.paras = append(prev.paras, p)
				prev.containsParas[p.ID] = true
			}
			continue
		}

		s := &span{
			paras:         append([]types.Paragraph(nil), slice...),
			overlapStart:  offset > 0,
			overlapEnd:    end < n,
			firstParaID:   slice[0].ID,
			containsParas: make(map[string]bool, len(slice)),
		}
		for _, p := range slice {
			s.containsParas[p.ID] = true
		}
		spans = append(spans, s)
	}

	total := n/stride + 1
	windows := make([]types.ExtractionWindowInput, 0, len(spans))
	for i, s := range spans {
		windows = append(windows, b.newWindow(doc, s, i, total, retrieved))
	}
	return windows
}

func (b *Builder) newWindow(doc types.Document, s *span, index, total int, retrieved []types.RetrievedContext) types.ExtractionWindowInput {
	w := types.ExtractionWindowInput{
		WindowID:         WindowID(doc.DocID, doc.EditionID, index, s.firstParaID),
		EditionID:        doc.EditionID,
		DocID:            doc.DocID,
		ParagraphIDs:     make([]string, 0, len(s.paras)),
		Texts:            make([]string, 0, len(s.paras)),
		Transitions:      []types.Transition{},
		RetrievedContext: append([]types.RetrievedContext{}, retrieved...),
		WindowIndex:      index,
		TotalWindows:     total,
		HasOverlapStart:  s.overlapStart,
		HasOverlapEnd:    s.overlapEnd,
	}
	for i, p := range s.paras {
		w.ParagraphIDs = append(w.ParagraphIDs, p.ID)
		w.Texts = append(w.Texts, p.Text)
		for _, tr := range b.detector.Detect(p.Text) {
			tr.ParagraphIndex = i
			w.Transitions = append(w.Transitions, tr)
		}
	}
	return w
}

// WindowID derives a stable UUIDv5 for a window from its document, edition,
// index and first paragraph.
func WindowID(docID, editionID string, index int, firstParaID string) string {
	name := fmt.Sprintf("%s:%s:%d:%s", docID, editionID, index, firstParaID)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
