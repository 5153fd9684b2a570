// Package entity defines the domain entities for the profile feature.
package entity

import (
	"strings"
	"time"
)

// Vitals holds the health measurements used as model features when
// scoring a scanned product for this user.
type Vitals struct {
	// SugarLevel is the fasting blood sugar in mg/dL.
	SugarLevel float64

	// CholesterolLevel is the total cholesterol in mg/dL.
	CholesterolLevel float64

	// BloodPressure is the systolic blood pressure in mmHg.
	BloodPressure float64

	// BMI is the body mass index.
	BMI float64

	// Age is the user's age in years.
	Age float64

	// HeartRate is the resting heart rate in bpm.
	HeartRate float64
}

// User represents a registered user in the system.
// It contains authentication credentials, the stored allergen list
// and the health vitals used for risk scoring.
type User struct {
	// ID is the unique identifier for the user.
	ID uint `gorm:"primaryKey"`

	// Email is the user's email address used for authentication.
	// It must be unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// Password is the hashed password for the user.
	// This should never store plaintext passwords.
	Password string `gorm:"size:255;not null"`

	// Allergens is the stored allergen list, comma-separated and
	// normalized to lowercase. Empty means no registered allergens.
	Allergens string `gorm:"size:1024"`

	// Vitals are the health measurements used for risk scoring.
	// Zero values mean the user has not registered them yet.
	Vitals Vitals `gorm:"embedded"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time
}

// AllergenList returns the stored allergens as a slice.
func (u *User) AllergenList() []string {
	if u.Allergens == "" {
		return []string{}
	}
	return strings.Split(u.Allergens, ",")
}
