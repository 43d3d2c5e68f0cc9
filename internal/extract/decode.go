// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/pkg/types"
)

// DecodeFragment parses a generation response into a fragment. Markdown
// code fences and text around the outermost JSON object are ignored. Any
// failure wraps failure.ErrMalformedOutput.
func DecodeFragment(raw []byte) (*types.Fragment, error) {
	body := bytes.TrimSpace(raw)
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response: %w", failure.ErrMalformedOutput)
	}

	var f types.Fragment
	if err := json.Unmarshal(body[start:end+1], &f); err != nil {
		return nil, fmt.Errorf("parsing fragment JSON: %v: %w", err, failure.ErrMalformedOutput)
	}
	return &f, nil
}
