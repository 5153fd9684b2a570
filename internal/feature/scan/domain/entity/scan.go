// Package entity defines the domain entities for the scan feature.
package entity

import allergenentity "allergyscan_backend/internal/feature/allergen/domain/entity"

// Nutrient is a single per-100g nutrient value from the product catalog.
type Nutrient struct {
	Name  string
	Value float64
}

// Product is a catalog record resolved from a barcode.
type Product struct {
	// Barcode is the decoded symbol payload (EAN/UPC digits).
	Barcode string

	// Name is the product display name. May be empty for sparse records.
	Name string

	// Brand is the brand string as reported by the catalog.
	Brand string

	// ImageURL points to a small product image, if the catalog has one.
	ImageURL string

	// Ingredients is the parsed ingredient list. May be empty; an empty
	// list is valid catalog data, not an error.
	Ingredients []string

	// Nutrients holds per-100g nutrient values keyed by display name.
	Nutrients []Nutrient
}

// HazardItem names one risky ingredient with a short explanation.
type HazardItem struct {
	Name  string
	Value string
}

// LongTermRisk describes cumulative health effects of the ingredient mix.
type LongTermRisk struct {
	Summary string
	Detail  string
}

// HazardNarrative is the generated natural-language hazard assessment.
// A failed or malformed generation degrades to the zero-value-like shape
// produced by EmptyNarrative, never to a parse error.
type HazardNarrative struct {
	Hazards        []HazardItem
	LongTermRisks  []LongTermRisk
	Recommendation string
}

// EmptyNarrative is the defined fallback shape for failed generation.
func EmptyNarrative() HazardNarrative {
	return HazardNarrative{
		Hazards:        []HazardItem{},
		LongTermRisks:  []LongTermRisk{},
		Recommendation: "Unable to analyze ingredients at this time.",
	}
}

// RiskFeatures is the tabular input of the health-risk scoring model.
// The first six values come from the user's stored vitals, the last four
// from the scanned product's nutrients.
type RiskFeatures struct {
	SugarLevel       float64
	CholesterolLevel float64
	BloodPressure    float64
	BMI              float64
	Age              float64
	HeartRate        float64

	SugarInProduct         float64
	SaltInProduct          float64
	SaturatedFatInProduct  float64
	CarbohydratesInProduct float64
}

// ScanReport is the merged outcome of one barcode scan.
type ScanReport struct {
	Barcode   string
	Product   Product
	Detection allergenentity.DetectionResult
	Score     int
	Narrative HazardNarrative
}
