// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the argmap pipeline:
// the argument graph nodes returned by the generation backend, the window
// handed to it, validation results, and configuration.
package types

// TransitionHint is the functional classification of a discourse marker.
type TransitionHint string

const (
	HintContrast     TransitionHint = "contrast"
	HintInference    TransitionHint = "inference"
	HintConcession   TransitionHint = "concession"
	HintContinuation TransitionHint = "continuation"
)

// TransitionHints lists every hint in table order.
var TransitionHints = []TransitionHint{HintContrast, HintInference, HintConcession, HintContinuation}

// Valid reports whether h is one of the four known hints.
func (h TransitionHint) Valid() bool {
	switch h {
	case HintContrast, HintInference, HintConcession, HintContinuation:
		return true
	}
	return false
}

// IllocutionForce is the pragmatic act performed by a locution.
type IllocutionForce string

const (
	ForceAssert       IllocutionForce = "assert"
	ForceDeny         IllocutionForce = "deny"
	ForceQuestion     IllocutionForce = "question"
	ForceDefine       IllocutionForce = "define"
	ForceDistinguish  IllocutionForce = "distinguish"
	ForceAttribute    IllocutionForce = "attribute"
	ForceConcede      IllocutionForce = "concede"
	ForceIronic       IllocutionForce = "ironic"
	ForceHypothetical IllocutionForce = "hypothetical"
	ForcePrescriptive IllocutionForce = "prescriptive"
)

// IllocutionForces lists every force.
var IllocutionForces = []IllocutionForce{
	ForceAssert, ForceDeny, ForceQuestion, ForceDefine, ForceDistinguish,
	ForceAttribute, ForceConcede, ForceIronic, ForceHypothetical, ForcePrescriptive,
}

// Valid reports whether f is one of the ten known forces.
func (f IllocutionForce) Valid() bool {
	switch f {
	case ForceAssert, ForceDeny, ForceQuestion, ForceDefine, ForceDistinguish,
		ForceAttribute, ForceConcede, ForceIronic, ForceHypothetical, ForcePrescriptive:
		return true
	}
	return false
}

// RelationType is the kind of argumentative relation (S-node).
type RelationType string

const (
	RelationSupport  RelationType = "support"
	RelationConflict RelationType = "conflict"
	RelationRephrase RelationType = "rephrase"
)

// RelationTypes lists every relation type.
var RelationTypes = []RelationType{RelationSupport, RelationConflict, RelationRephrase}

// Valid reports whether r is a known relation type.
func (r RelationType) Valid() bool {
	switch r {
	case RelationSupport, RelationConflict, RelationRephrase:
		return true
	}
	return false
}

// ConflictType refines a conflict relation.
type ConflictType string

const (
	ConflictRebut           ConflictType = "rebut"
	ConflictUndercut        ConflictType = "undercut"
	ConflictIncompatibility ConflictType = "incompatibility"
)

// ConflictTypes lists every conflict detail.
var ConflictTypes = []ConflictType{ConflictRebut, ConflictUndercut, ConflictIncompatibility}

// Valid reports whether c is a known conflict detail.
func (c ConflictType) Valid() bool {
	switch c {
	case ConflictRebut, ConflictUndercut, ConflictIncompatibility:
		return true
	}
	return false
}

// EntityType classifies an entity binding.
type EntityType string

const (
	EntityPerson   EntityType = "person"
	EntitySchool   EntityType = "school"
	EntityPosition EntityType = "position"
	EntityUnknown  EntityType = "unknown"
)

// EntityTypes lists every entity type.
var EntityTypes = []EntityType{EntityPerson, EntitySchool, EntityPosition, EntityUnknown}

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	switch e {
	case EntityPerson, EntitySchool, EntityPosition, EntityUnknown:
		return true
	}
	return false
}

// Locution is an L-node: a verbatim span of source text. Locutions are
// never modified after the backend returns them.
type Locution struct {
	// ID is the unique locution identifier within the window.
	ID string `json:"loc_id" yaml:"loc_id"`

	// DocID identifies the source document.
	DocID string `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`

	// Text is the verbatim text slice.
	Text string `json:"text" yaml:"text"`

	// StartChar and EndChar are offsets into the source paragraph.
	StartChar int `json:"start_char" yaml:"start_char"`
	EndChar   int `json:"end_char" yaml:"end_char"`

	// ParagraphID is the paragraph the span was cut from.
	ParagraphID string `json:"paragraph_id" yaml:"paragraph_id"`

	// SentenceID optionally narrows the span to a sentence.
	SentenceID string `json:"sentence_id,omitempty" yaml:"sentence_id,omitempty"`

	// SectionPath is the heading hierarchy above the paragraph.
	SectionPath []string `json:"section_path,omitempty" yaml:"section_path,omitempty"`

	// IsFootnote is true when the span comes from a footnote.
	IsFootnote bool `json:"is_footnote" yaml:"is_footnote"`
}

// ConceptBinding ties a proposition to a concept label.
type ConceptBinding struct {
	Label      string  `json:"concept_label" yaml:"concept_label"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// EntityBinding ties a proposition to a named entity.
type EntityBinding struct {
	EntityID    string     `json:"entity_id" yaml:"entity_id"`
	EntityType  EntityType `json:"entity_type,omitempty" yaml:"entity_type,omitempty"`
	SurfaceForm string     `json:"surface_form,omitempty" yaml:"surface_form,omitempty"`
	Confidence  float64    `json:"confidence" yaml:"confidence"`
}

// Proposition is an I-node: abstract content cited by one or more locutions.
type Proposition struct {
	// ID is the unique proposition identifier within the window.
	ID string `json:"prop_id" yaml:"prop_id"`

	// SurfaceLocIDs must name at least one locution of the same window.
	SurfaceLocIDs []string `json:"surface_loc_ids" yaml:"surface_loc_ids"`

	// TextSummary is a self-contained statement of the content.
	TextSummary string `json:"text_summary" yaml:"text_summary"`

	ConceptBindings []ConceptBinding `json:"concept_bindings,omitempty" yaml:"concept_bindings,omitempty"`
	EntityBindings  []EntityBinding  `json:"entity_bindings,omitempty" yaml:"entity_bindings,omitempty"`

	// TemporalScope is an optional period tag, e.g. "1844".
	TemporalScope string `json:"temporal_scope,omitempty" yaml:"temporal_scope,omitempty"`

	// IsImplicitReconstruction marks premises reconstructed from an enthymeme.
	IsImplicitReconstruction bool `json:"is_implicit_reconstruction" yaml:"is_implicit_reconstruction"`

	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// IllocutionaryEdge links one locution to one proposition with a force.
type IllocutionaryEdge struct {
	ID           string          `json:"illoc_id" yaml:"illoc_id"`
	SourceLocID  string          `json:"source_loc_id" yaml:"source_loc_id"`
	TargetPropID string          `json:"target_prop_id" yaml:"target_prop_id"`
	Force        IllocutionForce `json:"force" yaml:"force"`

	// AttributedTo names the person or school the content is attributed to.
	AttributedTo string `json:"attributed_to,omitempty" yaml:"attributed_to,omitempty"`

	// IsImplicitOpponent is true when the target is an unnamed opponent.
	IsImplicitOpponent bool `json:"is_implicit_opponent" yaml:"is_implicit_opponent"`

	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ArgumentRelation is an S-node relating source propositions to one target.
type ArgumentRelation struct {
	ID            string       `json:"rel_id" yaml:"rel_id"`
	Type          RelationType `json:"relation_type" yaml:"relation_type"`
	SourcePropIDs []string     `json:"source_prop_ids" yaml:"source_prop_ids"`
	TargetPropID  string       `json:"target_prop_id" yaml:"target_prop_id"`

	// ConflictDetail is only meaningful when Type is RelationConflict.
	ConflictDetail ConflictType `json:"conflict_detail,omitempty" yaml:"conflict_detail,omitempty"`

	// TargetsInference is true when an attack targets the inference, not the conclusion.
	TargetsInference bool `json:"targets_inference" yaml:"targets_inference"`

	// EvidenceLocIDs are the spans (e.g. "therefore") that license the link.
	EvidenceLocIDs []string `json:"evidence_loc_ids" yaml:"evidence_loc_ids"`

	SchemeType string  `json:"scheme_type,omitempty" yaml:"scheme_type,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Transition is one detected discourse marker occurrence.
type Transition struct {
	Marker string         `json:"marker" yaml:"marker"`
	Hint   TransitionHint `json:"hint" yaml:"hint"`

	// ParagraphIndex is the paragraph's position inside its window.
	ParagraphIndex int `json:"paragraph_index" yaml:"paragraph_index"`

	// Position is the character (rune) offset of the marker within its
	// paragraph, the same unit as Locution start_char/end_char.
	Position int `json:"position" yaml:"position"`
}

// Fragment is the graph returned by the generation backend for one window.
// A nil slice means the array was absent from the returned document; an
// empty non-nil slice means it was present but empty.
type Fragment struct {
	Locutions    []Locution          `json:"locutions" yaml:"locutions"`
	Transitions  []Transition        `json:"transitions" yaml:"transitions"`
	Propositions []Proposition       `json:"propositions" yaml:"propositions"`
	Illocutions  []IllocutionaryEdge `json:"illocutions" yaml:"illocutions"`
	Relations    []ArgumentRelation  `json:"relations" yaml:"relations"`
}

// LocutionIDs returns the set of locution ids defined in the fragment.
func (f *Fragment) LocutionIDs() map[string]bool {
	ids := make(map[string]bool, len(f.Locutions))
	for _, loc := range f.Locutions {
		if loc.ID != "" {
			ids[loc.ID] = true
		}
	}
	return ids
}

// PropositionIDs returns the set of proposition ids defined in the fragment.
func (f *Fragment) PropositionIDs() map[string]bool {
	ids := make(map[string]bool, len(f.Propositions))
	for _, p := range f.Propositions {
		if p.ID != "" {
			ids[p.ID] = true
		}
	}
	return ids
}
