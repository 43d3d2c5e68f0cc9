// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/argmap/pkg/types"
)

// readDocuments loads documents from a YAML or JSON file holding either a
// single document or a list.
func readDocuments(path string) ([]types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}

	var docs []types.Document
	if isList(data) {
		err = decode(path, data, &docs)
	} else {
		var doc types.Document
		err = decode(path, data, &doc)
		docs = []types.Document{doc}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for i, d := range docs {
		if d.DocID == "" {
			return nil, fmt.Errorf("parsing %s: document %d has no doc_id", path, i)
		}
	}
	return docs, nil
}

// readRetrieved loads a list of retrieved context entries. An empty path
// yields no context.
func readRetrieved(path string) ([]types.RetrievedContext, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading retrieved context: %w", err)
	}
	var rc []types.RetrievedContext
	if err := decode(path, data, &rc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, r := range rc {
		if r.RetrievalMethod != "" && !r.RetrievalMethod.Valid() {
			return nil, fmt.Errorf("parsing %s: entry %d has unknown retrieval_method %q", path, i, r.RetrievalMethod)
		}
	}
	return rc, nil
}

// readFragment loads a graph fragment exactly as a backend would return it.
func readFragment(path string) (*types.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fragment: %w", err)
	}
	var f types.Fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

func decode(path string, data []byte, v any) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

// isList reports whether the top-level value is a sequence.
func isList(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '[' {
		return true
	}
	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil || len(node.Content) == 0 {
		return false
	}
	return node.Content[0].Kind == yaml.SequenceNode
}
