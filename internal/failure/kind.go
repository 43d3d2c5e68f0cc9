// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package failure classifies extraction failures into a closed set of kinds
// and answers whether, and after how long, a failed window may be retried.
// Nothing in this package sleeps or performs I/O.
package failure

// Kind is a machine-readable failure category.
type Kind string

const (
	// GroundingFailure: a proposition or relation cites no valid locution.
	GroundingFailure Kind = "GROUNDING_FAILURE"
	// SchemaViolation: malformed output, missing fields or bad enum values.
	SchemaViolation Kind = "SCHEMA_VIOLATION"
	// ContextExhaustion: the generation call ran out of room.
	ContextExhaustion Kind = "CONTEXT_EXHAUSTION"
	// Overgeneration: too many propositions or relations for the window.
	Overgeneration Kind = "OVERGENERATION"
	// EntityResolutionFailure: an attributed entity could not be resolved.
	EntityResolutionFailure Kind = "ENTITY_RESOLUTION_FAILURE"
	// RetrievalPoisoningRisk: retrieved context leaked into the local graph.
	RetrievalPoisoningRisk Kind = "RETRIEVAL_POISONING_RISK"
	// ValidationCycle: the same failure keeps recurring without progress.
	ValidationCycle Kind = "VALIDATION_CYCLE"
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	GroundingFailure,
	SchemaViolation,
	ContextExhaustion,
	Overgeneration,
	EntityResolutionFailure,
	RetrievalPoisoningRisk,
	ValidationCycle,
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case GroundingFailure, SchemaViolation, ContextExhaustion, Overgeneration,
		EntityResolutionFailure, RetrievalPoisoningRisk, ValidationCycle:
		return true
	}
	return false
}

// SuggestedRecovery returns the canned recovery action for k.
func (k Kind) SuggestedRecovery() string {
	switch k {
	case GroundingFailure:
		return "re-prompt requiring every proposition and relation to cite locution ids from the local window"
	case SchemaViolation:
		return "re-prompt with the output schema and require a single strict JSON object"
	case ContextExhaustion:
		return "shrink the window or raise the token limit, then retry"
	case Overgeneration:
		return "re-prompt asking for fewer, grounded propositions and relations"
	case EntityResolutionFailure:
		return "retry with more surrounding context to disambiguate the entity"
	case RetrievalPoisoningRisk:
		return "re-prompt without retrieved context, or restate that it is read-only"
	case ValidationCycle:
		return "stop retrying and flag the window for manual review"
	}
	return ""
}
