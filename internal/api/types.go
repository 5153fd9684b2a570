// Package api defines the request and response types shared by the HTTP handlers.
package api

// ErrorResponse is the generic error body returned by all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// TokenResponse carries a signed JWT after a successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// SignupRequest is the request body for POST /v1/auth/signup.
// It uses Gin's binding tags for validation (required, email format, password length).
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the request body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// DetectRequest is the request body for POST /v1/scan/detect.
// Allergens may be empty; an empty list always yields a safe result.
type DetectRequest struct {
	Allergens      []string `json:"allergens"`
	IngredientText string   `json:"ingredient_text" binding:"required"`
}

// DetectResponse mirrors the allergen detection outcome.
type DetectResponse struct {
	DetectedAllergens []string `json:"detected_allergens"`
	Safe              bool     `json:"safe"`
	Error             string   `json:"error,omitempty"`
}

// NutrientResponse is one per-100g nutrient value of the scanned product.
type NutrientResponse struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ProductResponse is the catalog record part of a scan report.
type ProductResponse struct {
	Barcode     string             `json:"barcode"`
	Name        string             `json:"name"`
	Brand       string             `json:"brand"`
	ImageURL    string             `json:"image_url,omitempty"`
	Ingredients []string           `json:"ingredients"`
	Nutrients   []NutrientResponse `json:"nutrients"`
}

// HazardItemResponse names one risky ingredient with a short explanation.
type HazardItemResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LongTermRiskResponse describes cumulative health effects of the ingredient mix.
type LongTermRiskResponse struct {
	Summary string `json:"summary"`
	Detail  string `json:"detail"`
}

// NarrativeResponse is the generated hazard assessment.
type NarrativeResponse struct {
	Hazards        []HazardItemResponse   `json:"hazard"`
	LongTermRisks  []LongTermRiskResponse `json:"long_term"`
	Recommendation string                 `json:"recommend"`
}

// ScanResponse is the merged outcome of POST /v1/scan.
type ScanResponse struct {
	Barcode   string            `json:"barcode"`
	Product   ProductResponse   `json:"product"`
	Detection DetectResponse    `json:"detection"`
	Score     int               `json:"score"`
	Narrative NarrativeResponse `json:"narrative"`
}

// AllergensResponse is the body of GET /v1/profile/allergens.
type AllergensResponse struct {
	Allergens []string `json:"allergens"`
}

// UpdateAllergensRequest is the request body for PUT /v1/profile/allergens.
type UpdateAllergensRequest struct {
	Allergens []string `json:"allergens" binding:"required"`
}

// VitalsRequest is the request body for PUT /v1/profile/vitals.
type VitalsRequest struct {
	SugarLevel       float64 `json:"sugar_level" binding:"min=0"`
	CholesterolLevel float64 `json:"cholesterol_level" binding:"min=0"`
	BloodPressure    float64 `json:"blood_pressure" binding:"min=0"`
	BMI              float64 `json:"bmi" binding:"min=0"`
	Age              float64 `json:"age" binding:"min=0"`
	HeartRate        float64 `json:"heart_rate" binding:"min=0"`
}
