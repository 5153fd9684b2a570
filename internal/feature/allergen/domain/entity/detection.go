// Package entity defines the domain entities for the allergen feature.
package entity

// DetectionResult is the outcome of matching a user's allergen list against
// a product's ingredient text.
//
// Invariant: Safe is true if and only if DetectedAllergens is empty and
// Error is empty. A failed detection never reports Safe.
type DetectionResult struct {
	// DetectedAllergens holds the normalized allergen tokens found in the
	// ingredient text, sorted for deterministic output. May be empty.
	DetectedAllergens []string

	// Safe reports whether no allergen from the user's list was detected.
	Safe bool

	// Error carries a diagnostic message when detection degraded due to an
	// internal failure (embedding or classification). Empty on success.
	Error string
}
