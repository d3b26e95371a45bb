package services

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"property-ingest/models"
)

func TestValidateValidRecord(t *testing.T) {
	res := Validator{}.Validate(validRecord())
	if !res.Valid || len(res.Errors) != 0 {
		t.Errorf("Validate(valid) = %+v", res)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	res := Validator{}.Validate(models.Property{Address: "123 Main St"})

	want := []string{
		"postcode is required",
		"propertyType is required",
		"tenure is required",
		"price must be a positive number",
	}
	if res.Valid || !slices.Equal(res.Errors, want) {
		t.Errorf("Validate(address only) = %+v; want errors %v", res, want)
	}
}

func TestValidateRules(t *testing.T) {
	nan := math.NaN()
	lat := 51.5

	tests := []struct {
		name    string
		v       Validator
		modify  func(p *models.Property)
		wantErr string
	}{
		{"blank address", Validator{}, func(p *models.Property) { p.Address = "  " }, "address is required"},
		{"unknown type", Validator{}, func(p *models.Property) { p.PropertyType = "yurt" }, `propertyType "yurt" is not a known type`},
		{"unknown tenure", Validator{}, func(p *models.Property) { p.Tenure = "lifetime" }, `tenure "lifetime" is not a known tenure`},
		{"unknown status", Validator{}, func(p *models.Property) { p.Status = "gone" }, `status "gone" is not a known status`},
		{"negative price", Validator{}, func(p *models.Property) { p.Price = -1 }, "price must be a positive number"},
		{"nan price", Validator{}, func(p *models.Property) { p.Price = nan }, "price must be a positive number"},
		{"negative bedrooms", Validator{}, func(p *models.Property) { p.Bedrooms = -1 }, "bedrooms must be a non-negative number"},
		{"nan latitude", Validator{}, func(p *models.Property) { p.Latitude = &nan }, "latitude must be a number"},
		{"sold needs date", Validator{RequireSaleDate: true}, func(p *models.Property) {}, "saleDate is required"},
	}
	for _, tt := range tests {
		p := validRecord()
		tt.modify(&p)
		res := tt.v.Validate(p)
		if res.Valid || !slices.Contains(res.Errors, tt.wantErr) {
			t.Errorf("%s: Validate() = %+v; want error %q", tt.name, res, tt.wantErr)
		}
	}

	ok := []func(p *models.Property){
		func(p *models.Property) { p.Status = "" },
		func(p *models.Property) { p.Latitude = &lat },
		func(p *models.Property) { p.Bedrooms, p.Bathrooms, p.SquareFeet = 0, 0, 0 },
	}
	for i, modify := range ok {
		p := validRecord()
		modify(&p)
		if res := (Validator{}).Validate(p); !res.Valid {
			t.Errorf("case %d: Validate() = %+v; want valid", i, res)
		}
	}
}

func TestCheckReturnsValidationError(t *testing.T) {
	if err := (Validator{}).Check(validRecord()); err != nil {
		t.Errorf("Check(valid) = %v", err)
	}

	err := Validator{}.Check(models.Property{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Check(empty) = %v; want *ValidationError", err)
	}
	if !strings.HasPrefix(err.Error(), "validation failed: address is required; postcode is required") {
		t.Errorf("Error() = %q", err.Error())
	}
}
