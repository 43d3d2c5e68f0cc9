// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/argmap/internal/discourse"
	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/pkg/types"
)

// Prompt is one rendered generation request.
type Prompt struct {
	System string
	User   string
}

// systemPrompt states the graph contract. It is identical for every window.
const systemPrompt = `You are an argument extraction agent. You extract argumentative structure from text following the AIF/IAT framework:
- Locutions (L-nodes): verbatim text spans from the LOCAL WINDOW
- Propositions (I-nodes): the abstract content those spans express
- Illocutions: what is done with a span (assert, deny, attribute, ...)
- Relations (S-nodes): support, conflict or rephrase between propositions
- Transitions: discourse markers such as "however" or "therefore"

Hard constraints:
1. Every proposition cites at least one locution id in surface_loc_ids.
2. Every relation cites at least one locution id in evidence_loc_ids.
3. Every id you reference is defined in your own output.
4. RETRIEVED CONTEXT is read-only. Never create locutions from it and never cite its ids as locutions.
5. Illocution force is one of: assert, deny, question, define, distinguish, attribute, concede, ironic, hypothetical, prescriptive.
6. Transition hint is one of: contrast, inference, concession, continuation.
7. relation_type is one of: support, conflict, rephrase. conflict_detail is one of: rebut, undercut, incompatibility.

Respond with a single JSON object with the arrays "locutions", "transitions", "propositions", "illocutions" and "relations". Do not include any text outside the JSON object.`

var windowPromptTmpl = template.Must(template.New("window").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`{{if .Transitions}}Detected discourse markers in this window:
{{range .Transitions}}- {{.Marker}} ({{.Hint}}) in paragraph {{inc .ParagraphIndex}} at position {{.Position}}
{{end}}
These markers signal likely argumentative transitions. Use them to identify relations.

{{end}}--- LOCAL WINDOW (extractable) ---
Document {{.DocID}}, window {{inc .WindowIndex}} of about {{.TotalWindows}}.
{{- if .HasOverlapStart}} The first paragraph repeats the end of the previous window.{{end}}
{{- if .HasOverlapEnd}} The last paragraph is repeated in the next window.{{end}}

{{range $i, $p := .Paragraphs}}[Paragraph {{inc $i}} id={{$p.ID}}] {{$p.Text}}

{{end}}--- END LOCAL WINDOW ---
{{if .Retrieved}}
--- RETRIEVED CONTEXT (read-only, non-extractable) ---
These propositions were extracted earlier from this or related texts. You may use them to understand the argument, but DO NOT create locutions from them and DO NOT re-extract them.

{{range $i, $r := .Retrieved}}[{{inc $i}}] {{$r.PropID}}: "{{$r.TextSummary}}" (from {{$r.SourceDocID}})
{{end}}--- END RETRIEVED CONTEXT ---
{{end}}{{if .Feedback}}
--- PREVIOUS ATTEMPT REJECTED ---
{{range .Feedback}}- {{.Kind}}: {{.Message}}
  Recovery: {{.SuggestedRecovery}}
{{end}}--- END PREVIOUS ATTEMPT ---
{{end}}`))

type promptParagraph struct {
	ID   string
	Text string
}

type promptData struct {
	types.ExtractionWindowInput
	Paragraphs []promptParagraph
	Retrieved  []types.RetrievedContext
	Feedback   []*failure.ExtractionError
}

// RenderPrompt renders the generation request for in. The local window comes
// before any retrieved context. feedback lists the errors of the previous
// attempt, if any.
func RenderPrompt(in types.ExtractionWindowInput, feedback []*failure.ExtractionError) (Prompt, error) {
	data := promptData{
		ExtractionWindowInput: in,
		Retrieved:             in.RetrievedContext,
		Feedback:              feedback,
	}
	for i, id := range in.ParagraphIDs {
		var text string
		if i < len(in.Texts) {
			text = in.Texts[i]
		}
		data.Paragraphs = append(data.Paragraphs, promptParagraph{ID: id, Text: text})
	}

	var buf bytes.Buffer
	if err := windowPromptTmpl.Execute(&buf, data); err != nil {
		return Prompt{}, err
	}
	return Prompt{System: systemPrompt + "\n\n" + markerGlossary(), User: buf.String()}, nil
}

// markerGlossary lists the marker tables so the model maps markers to the
// same hints the detector uses.
func markerGlossary() string {
	tables := discourse.Markers()
	var b strings.Builder
	b.WriteString("Marker tables:")
	for _, hint := range types.TransitionHints {
		b.WriteString("\n- ")
		b.WriteString(string(hint))
		b.WriteString(": ")
		b.WriteString(strings.Join(tables[hint], ", "))
	}
	return b.String()
}
