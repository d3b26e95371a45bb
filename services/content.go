package services

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"property-ingest/models"
)

var gbp = message.NewPrinter(language.BritishEnglish)

// GenerateTitle returns the record's own title, or composes one such as
// "3 Bedroom Semi-detached in Testville".
func GenerateTitle(p models.Property) string {
	if strings.TrimSpace(p.Title) != "" {
		return p.Title
	}

	var b strings.Builder
	if p.Bedrooms > 0 {
		b.WriteString(gbp.Sprintf("%d Bedroom ", p.Bedrooms))
	}
	b.WriteString(capitalize(string(p.PropertyType)))
	if place := firstNonEmpty(p.Location, p.Postcode, firstAddressSegment(p.Address)); place != "" {
		b.WriteString(" in ")
		b.WriteString(place)
	}
	return b.String()
}

// GenerateSoldTitle composes the title used for sold-price records:
// "<Type> for sale on <first address segment>". An empty first segment
// leaves the trailing "on " in place.
func GenerateSoldTitle(address string, propertyType models.PropertyType) string {
	return capitalize(string(propertyType)) + " for sale on " + firstAddressSegment(address)
}

// GenerateDescription composes a one-paragraph summary from the
// structured fields, with a price clause worded by status.
func GenerateDescription(p models.Property) string {
	var rooms []string
	if p.Bedrooms > 0 {
		rooms = append(rooms, gbp.Sprintf("%d bedroom", p.Bedrooms))
	}
	if p.Bathrooms > 0 {
		rooms = append(rooms, gbp.Sprintf("%d bathroom", p.Bathrooms))
	}

	var b strings.Builder
	b.WriteString("This ")
	if len(rooms) > 0 {
		b.WriteString(strings.Join(rooms, ", "))
		b.WriteString(" ")
	}
	b.WriteString(string(p.PropertyType))
	b.WriteString(" property")
	if p.SquareFeet > 0 {
		b.WriteString(gbp.Sprintf(" of %d sq ft", p.SquareFeet))
	}
	if place := firstNonEmpty(p.Location, p.Town, p.Postcode); place != "" {
		b.WriteString(" in ")
		b.WriteString(place)
	}
	if p.Tenure != "" {
		b.WriteString(", held ")
		b.WriteString(strings.ReplaceAll(string(p.Tenure), "-", " "))
		b.WriteString(",")
	}
	b.WriteString(" ")
	b.WriteString(priceClause(p))
	b.WriteString(".")
	return b.String()
}

func priceClause(p models.Property) string {
	amount := formatPounds(p.Price)
	switch p.Status {
	case models.StatusForSale:
		return "is available for purchase at " + amount
	case models.StatusForRent:
		return "is available to rent at " + amount + " per month"
	case models.StatusSold:
		if p.SaleDate != "" {
			return "was sold for " + amount + " on " + p.SaleDate
		}
		return "was sold for " + amount
	default:
		return "is listed at " + amount
	}
}

// formatPounds renders whole pounds with UK digit grouping, e.g. "£250,000".
func formatPounds(price float64) string {
	return gbp.Sprintf("£%d", int64(math.Round(price)))
}

// firstAddressSegment returns the trimmed text before the first comma.
func firstAddressSegment(address string) string {
	segment, _, _ := strings.Cut(address, ",")
	return strings.TrimSpace(segment)
}

// capitalize upper-cases the first letter only: "semi-detached" -> "Semi-detached".
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// synthesize fills title and description when the source left them blank.
func synthesize(p *models.Property, variant models.Variant) {
	if strings.TrimSpace(p.Title) == "" {
		if variant == models.VariantSold {
			p.Title = GenerateSoldTitle(p.Address, p.PropertyType)
		} else {
			p.Title = GenerateTitle(*p)
		}
	}
	if strings.TrimSpace(p.Description) == "" {
		p.Description = GenerateDescription(*p)
	}
}
