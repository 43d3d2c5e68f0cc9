// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/argmap/pkg/types"
)

// ExportDocument groups one document's stored windows.
type ExportDocument struct {
	DocID   string                   `json:"doc_id" yaml:"doc_id"`
	Windows []types.ExtractionWindow `json:"windows" yaml:"windows"`
}

// ExportYAML writes the stored graph to dir/export.yaml and returns the
// path. docID restricts the export to one document.
func (s *Store) ExportYAML(ctx context.Context, docID string) (string, error) {
	docs, err := s.exportDocuments(ctx, docID)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the stored graph to dir/export.json and returns the
// path.
func (s *Store) ExportJSON(ctx context.Context, docID string) (string, error) {
	docs, err := s.exportDocuments(ctx, docID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.dir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportDocuments(ctx context.Context, docID string) ([]ExportDocument, error) {
	windows, err := s.Windows(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	var docs []ExportDocument
	for _, w := range windows {
		if len(docs) == 0 || docs[len(docs)-1].DocID != w.DocID {
			docs = append(docs, ExportDocument{DocID: w.DocID})
		}
		last := &docs[len(docs)-1]
		last.Windows = append(last.Windows, w)
	}
	return docs, nil
}
