package models

import "time"

// PropertyType is the closed set of canonical property types.
type PropertyType string

const (
	PropertyDetached     PropertyType = "detached"
	PropertySemiDetached PropertyType = "semi-detached"
	PropertyTerraced     PropertyType = "terraced"
	PropertyFlat         PropertyType = "flat"
	PropertyBungalow     PropertyType = "bungalow"
	PropertyCottage      PropertyType = "cottage"
	PropertyMaisonette   PropertyType = "maisonette"
	PropertyCommercial   PropertyType = "commercial"
)

// Tenure is the closed set of UK tenure types.
type Tenure string

const (
	TenureFreehold        Tenure = "freehold"
	TenureLeasehold       Tenure = "leasehold"
	TenureShareOfFreehold Tenure = "share-of-freehold"
)

// Status is the closed set of listing statuses.
type Status string

const (
	StatusForSale    Status = "for-sale"
	StatusForRent    Status = "for-rent"
	StatusUnderOffer Status = "under-offer"
	StatusSold       Status = "sold"
	StatusLetAgreed  Status = "let-agreed"
)

// PropertyTypes lists every valid PropertyType in declaration order.
var PropertyTypes = []PropertyType{
	PropertyDetached, PropertySemiDetached, PropertyTerraced, PropertyFlat,
	PropertyBungalow, PropertyCottage, PropertyMaisonette, PropertyCommercial,
}

// Tenures lists every valid Tenure.
var Tenures = []Tenure{TenureFreehold, TenureLeasehold, TenureShareOfFreehold}

// Statuses lists every valid Status.
var Statuses = []Status{StatusForSale, StatusForRent, StatusUnderOffer, StatusSold, StatusLetAgreed}

func (t PropertyType) Valid() bool {
	for _, v := range PropertyTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (t Tenure) Valid() bool {
	for _, v := range Tenures {
		if v == t {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// EmbeddingDimensions is the vector size expected by the search index.
const EmbeddingDimensions = 1536

// Vector is a text embedding. A nil Vector means the record has no embedding.
type Vector []float32

// Property is the canonical, enum-constrained property record produced by
// normalization and handed to the store.
type Property struct {
	ID           string            `json:"id,omitempty"`
	Title        string            `json:"title"`
	Address      string            `json:"address"`
	Postcode     string            `json:"postcode"`
	Price        float64           `json:"price"`
	Description  string            `json:"description"`
	PropertyType PropertyType      `json:"propertyType"`
	Tenure       Tenure            `json:"tenure"`
	Status       Status            `json:"status"`
	Bedrooms     int               `json:"bedrooms"`
	Bathrooms    int               `json:"bathrooms"`
	SquareFeet   int               `json:"squareFeet"`
	Features     []string          `json:"features"`
	ImageURL     *string           `json:"imageUrl"`
	Location     string            `json:"location"`
	Town         string            `json:"town,omitempty"`
	County       string            `json:"county,omitempty"`
	ListingAgent string            `json:"listingAgent,omitempty"`
	SaleDate     string            `json:"saleDate,omitempty"`
	Latitude     *float64          `json:"latitude,omitempty"`
	Longitude    *float64          `json:"longitude,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Embedding    Vector            `json:"embedding,omitempty"`
	CreatedAt    time.Time         `json:"createdAt,omitempty"`
}

// Variant selects the ingestion flavour: regular listings or sold-price records.
type Variant string

const (
	VariantListing Variant = "listing"
	VariantSold    Variant = "sold"
)

// ParseVariant maps user input to a Variant, defaulting to VariantListing.
func ParseVariant(s string) Variant {
	if Variant(s) == VariantSold {
		return VariantSold
	}
	return VariantListing
}

// Row renders the record as a RawRow keyed by canonical field names, so it
// can be fed back through normalization with IdentityMapping.
func (p Property) Row() RawRow {
	row := RawRow{
		string(FieldTitle):        p.Title,
		string(FieldAddress):      p.Address,
		string(FieldPostcode):     p.Postcode,
		string(FieldPrice):        p.Price,
		string(FieldDescription):  p.Description,
		string(FieldPropertyType): string(p.PropertyType),
		string(FieldBedrooms):     p.Bedrooms,
		string(FieldBathrooms):    p.Bathrooms,
		string(FieldSquareFeet):   p.SquareFeet,
		string(FieldTenure):       string(p.Tenure),
		string(FieldStatus):       string(p.Status),
		string(FieldLocation):     p.Location,
		string(FieldFeatures):     p.Features,
		string(FieldListingAgent): p.ListingAgent,
		string(FieldTown):         p.Town,
		string(FieldCounty):       p.County,
		string(FieldSaleDate):     p.SaleDate,
	}
	if p.ImageURL != nil {
		row[string(FieldImageURL)] = *p.ImageURL
	}
	return row
}

// Place is what a postcode lookup knows about an area.
type Place struct {
	Town      string
	County    string
	Latitude  float64
	Longitude float64
}
