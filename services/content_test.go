package services

import (
	"testing"

	"property-ingest/models"
)

func TestGenerateSoldTitle(t *testing.T) {
	tests := []struct {
		address      string
		propertyType models.PropertyType
		want         string
	}{
		{"123 Main St, Testville, Testshire", models.PropertyDetached, "Detached for sale on 123 Main St"},
		{"", models.PropertySemiDetached, "Semi-detached for sale on "},
		{",Testville,Testshire", models.PropertyBungalow, "Bungalow for sale on "},
		{"  Flat 2  , Rose Court", models.PropertyFlat, "Flat for sale on Flat 2"},
	}
	for _, tt := range tests {
		if got := GenerateSoldTitle(tt.address, tt.propertyType); got != tt.want {
			t.Errorf("GenerateSoldTitle(%q, %q) = %q; want %q", tt.address, tt.propertyType, got, tt.want)
		}
	}
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name string
		p    models.Property
		want string
	}{
		{
			"own title kept",
			models.Property{Title: "Charming cottage", PropertyType: models.PropertyCottage},
			"Charming cottage",
		},
		{
			"bedrooms and location",
			models.Property{Bedrooms: 3, PropertyType: models.PropertySemiDetached, Location: "Testville"},
			"3 Bedroom Semi-detached in Testville",
		},
		{
			"postcode fallback",
			models.Property{PropertyType: models.PropertyFlat, Postcode: "TE1 1ST"},
			"Flat in TE1 1ST",
		},
		{
			"address fallback",
			models.Property{Bedrooms: 2, PropertyType: models.PropertyTerraced, Address: "4 Oak Lane, Testville"},
			"2 Bedroom Terraced in 4 Oak Lane",
		},
		{
			"no place at all",
			models.Property{PropertyType: models.PropertyBungalow},
			"Bungalow",
		},
	}
	for _, tt := range tests {
		if got := GenerateTitle(tt.p); got != tt.want {
			t.Errorf("%s: GenerateTitle() = %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestGenerateDescription(t *testing.T) {
	base := validRecord()
	base.SquareFeet = 1200

	tests := []struct {
		name   string
		modify func(p *models.Property)
		want   string
	}{
		{
			"for sale",
			func(p *models.Property) {},
			"This 3 bedroom, 2 bathroom detached property of 1,200 sq ft in Testville, held freehold, is available for purchase at £250,000.",
		},
		{
			"for rent",
			func(p *models.Property) {
				p.Status, p.Price, p.Tenure = models.StatusForRent, 1450, models.TenureLeasehold
			},
			"This 3 bedroom, 2 bathroom detached property of 1,200 sq ft in Testville, held leasehold, is available to rent at £1,450 per month.",
		},
		{
			"sold with date",
			func(p *models.Property) {
				p.Status, p.SaleDate = models.StatusSold, "2023-06-30"
			},
			"This 3 bedroom, 2 bathroom detached property of 1,200 sq ft in Testville, held freehold, was sold for £250,000 on 2023-06-30.",
		},
		{
			"under offer, minimal",
			func(p *models.Property) {
				p.Status = models.StatusUnderOffer
				p.Bedrooms, p.Bathrooms, p.SquareFeet = 0, 0, 0
				p.Tenure = models.TenureShareOfFreehold
				p.Location = ""
			},
			"This detached property in TE1 1ST, held share of freehold, is listed at £250,000.",
		},
	}
	for _, tt := range tests {
		p := base
		tt.modify(&p)
		if got := GenerateDescription(p); got != tt.want {
			t.Errorf("%s:\n got %q\nwant %q", tt.name, got, tt.want)
		}
	}
}

func TestSynthesizeKeepsSourceContent(t *testing.T) {
	p := validRecord()
	p.Title = "Keep me"
	p.Description = "Source description"
	synthesize(&p, models.VariantSold)

	if p.Title != "Keep me" || p.Description != "Source description" {
		t.Errorf("synthesize overwrote source content: %q / %q", p.Title, p.Description)
	}
}
