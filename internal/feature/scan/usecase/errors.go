// Package usecase implements the business logic for the scan feature.
package usecase

import "errors"

var (
	// ErrBarcodeNotFound is returned when no barcode symbol can be located
	// or decoded in the submitted image.
	ErrBarcodeNotFound = errors.New("barcode not detected")

	// ErrProductNotFound is returned when the catalog has no record for the
	// decoded barcode.
	ErrProductNotFound = errors.New("product not found")

	// ErrProductLookupFailed is returned when the catalog could not be
	// reached. Distinct from ErrProductNotFound so callers can tell
	// "unknown product" from "lookup infrastructure failure".
	ErrProductLookupFailed = errors.New("product lookup failed")
)
