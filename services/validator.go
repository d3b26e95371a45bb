package services

import (
	"math"
	"strings"

	"property-ingest/models"
)

// ValidationError lists every rule a record broke. It fails only that record.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validator checks canonical records before they are persisted.
type Validator struct {
	// RequireSaleDate is set for sold-price imports.
	RequireSaleDate bool
}

// Validate reports every broken rule rather than stopping at the first.
func (v Validator) Validate(p models.Property) ValidationResult {
	var errs []string
	required := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, name+" is required")
		}
	}

	required("address", p.Address)
	required("postcode", p.Postcode)
	if v.RequireSaleDate {
		required("saleDate", p.SaleDate)
	}

	switch {
	case p.PropertyType == "":
		errs = append(errs, "propertyType is required")
	case !p.PropertyType.Valid():
		errs = append(errs, "propertyType "+quote(string(p.PropertyType))+" is not a known type")
	}
	switch {
	case p.Tenure == "":
		errs = append(errs, "tenure is required")
	case !p.Tenure.Valid():
		errs = append(errs, "tenure "+quote(string(p.Tenure))+" is not a known tenure")
	}
	if p.Status != "" && !p.Status.Valid() {
		errs = append(errs, "status "+quote(string(p.Status))+" is not a known status")
	}

	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
		errs = append(errs, "price must be a positive number")
	}

	counts := []struct {
		name  string
		value int
	}{
		{"bedrooms", p.Bedrooms},
		{"bathrooms", p.Bathrooms},
		{"squareFeet", p.SquareFeet},
	}
	for _, c := range counts {
		if c.value < 0 {
			errs = append(errs, c.name+" must be a non-negative number")
		}
	}

	coords := []struct {
		name  string
		value *float64
	}{
		{"latitude", p.Latitude},
		{"longitude", p.Longitude},
	}
	for _, c := range coords {
		if c.value != nil && (math.IsNaN(*c.value) || math.IsInf(*c.value, 0)) {
			errs = append(errs, c.name+" must be a number")
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Check is Validate as an error: nil, or a *ValidationError.
func (v Validator) Check(p models.Property) error {
	res := v.Validate(p)
	if res.Valid {
		return nil
	}
	return &ValidationError{Errors: res.Errors}
}

func quote(s string) string {
	return `"` + s + `"`
}
