package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- config ---

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v, types.DefaultConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultWindowConfig(), cfg.Window)
	assert.Equal(t, "claude", cfg.AI.Provider)
	assert.Equal(t, time.Hour, cfg.Extraction.CacheTTL)

	policy, err := failure.PolicyFromConfig(cfg.Retry)
	require.NoError(t, err, "lowercased kind names must still resolve")
	assert.Equal(t, failure.DefaultPolicy(), policy)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "argmap.yaml", `
window:
  max_paragraphs: 8
  overlap: 2
retry:
  max_retries:
    GROUNDING_FAILURE: 5
  base_backoff: 250ms
extraction:
  cache_ttl: 10m
`)
	t.Setenv("ARGMAP_AI_MODEL", "gpt-4o")

	v := viper.New()
	setDefaults(v, types.DefaultConfig())
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARGMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.WindowConfig{MinParagraphs: 2, MaxParagraphs: 8, Overlap: 2}, cfg.Window)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 10*time.Minute, cfg.Extraction.CacheTTL)

	policy, err := failure.PolicyFromConfig(cfg.Retry)
	require.NoError(t, err)
	assert.Equal(t, 5, policy.MaxRetries[failure.GroundingFailure])
	assert.Equal(t, 250*time.Millisecond, policy.BaseBackoff)
}

// --- input files ---

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		wantIDs []string
		wantErr bool
	}{
		{
			name: "yaml list",
			file: "docs.yaml",
			content: `
- doc_id: capital
  edition_id: mew-23
  paragraphs:
    - {id: p0, text: "The wealth of societies appears as an immense collection of commodities."}
    - {id: p1, text: "However, the commodity is a mysterious thing."}
- doc_id: grundrisse
  paragraphs: []
`,
			wantIDs: []string{"capital", "grundrisse"},
		},
		{
			name:    "yaml single document",
			file:    "doc.yaml",
			content: "doc_id: capital\nparagraphs:\n  - {id: p0, text: x}\n",
			wantIDs: []string{"capital"},
		},
		{
			name:    "json list",
			file:    "docs.json",
			content: `[{"doc_id": "capital", "paragraphs": [{"id": "p0", "text": "x"}]}]`,
			wantIDs: []string{"capital"},
		},
		{
			name:    "json single document",
			file:    "doc.json",
			content: `{"doc_id": "capital", "paragraphs": []}`,
			wantIDs: []string{"capital"},
		},
		{
			name:    "missing doc_id",
			file:    "bad.yaml",
			content: "paragraphs: []\n",
			wantErr: true,
		},
		{
			name:    "malformed json",
			file:    "bad.json",
			content: `{"doc_id": `,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := readDocuments(writeFile(t, dir, tt.file, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var ids []string
			for _, d := range docs {
				ids = append(ids, d.DocID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestReadRetrieved(t *testing.T) {
	dir := t.TempDir()

	rc, err := readRetrieved("")
	require.NoError(t, err)
	assert.Nil(t, rc)

	path := writeFile(t, dir, "rc.yaml", `
- prop_id: R-1
  text_summary: Money is the measure of value
  source_doc_id: contribution
  retrieval_method: concept_overlap
  retrieval_score: 0.8
`)
	rc, err = readRetrieved(path)
	require.NoError(t, err)
	require.Len(t, rc, 1)
	assert.Equal(t, types.RetrievalConceptOverlap, rc[0].RetrievalMethod)
	assert.InDelta(t, 0.8, rc[0].RetrievalScore, 1e-9)

	bad := writeFile(t, dir, "bad.yaml", "- {prop_id: R-1, retrieval_method: telepathy}\n")
	_, err = readRetrieved(bad)
	assert.ErrorContains(t, err, "unknown retrieval_method")
}

// --- commands ---

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	frag := writeFile(t, dir, "frag.json", `{
  "locutions": [{"loc_id": "L1", "text": "value is labour", "paragraph_id": "p0"}],
  "transitions": [],
  "propositions": [{"prop_id": "P1", "surface_loc_ids": ["R-1"], "text_summary": "Value is labour"}],
  "illocutions": [],
  "relations": []
}`)
	retrieved := writeFile(t, dir, "rc.json", `[{"prop_id": "R-1", "text_summary": "Labour creates value"}]`)

	var out bytes.Buffer
	validateCmd.SetOut(&out)
	t.Cleanup(func() { validateCmd.SetOut(nil) })
	require.NoError(t, validateCmd.Flags().Set("retrieved", retrieved))
	t.Cleanup(func() { _ = validateCmd.Flags().Set("retrieved", "") })

	err := runValidate(validateCmd, []string{frag})
	require.Error(t, err)
	assert.Contains(t, out.String(), "invalid")
	assert.Contains(t, out.String(), "[grounding] Proposition 0 cites non-existent locution: R-1")
	assert.Contains(t, out.String(), "RETRIEVAL_POISONING_RISK (max retries 2)")
}

func TestMarkersCommand(t *testing.T) {
	var out bytes.Buffer
	markersCmd.SetOut(&out)
	t.Cleanup(func() { markersCmd.SetOut(nil) })

	require.NoError(t, runMarkers(markersCmd, []string{"Prices rise.", "Therefore", "wages fall."}))
	assert.Contains(t, out.String(), "Therefore")
	assert.Contains(t, out.String(), "inference")
	assert.Contains(t, out.String(), "1 markers")
}
