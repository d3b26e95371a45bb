package models

// RawRow is one parsed input row keyed by source header. Values are
// strings from file parsers, or JSON scalars and lists from API callers.
type RawRow map[string]any

// Field names a canonical property field.
type Field string

const (
	FieldTitle        Field = "title"
	FieldAddress      Field = "address"
	FieldPostcode     Field = "postcode"
	FieldPrice        Field = "price"
	FieldDescription  Field = "description"
	FieldPropertyType Field = "propertyType"
	FieldBedrooms     Field = "bedrooms"
	FieldBathrooms    Field = "bathrooms"
	FieldSquareFeet   Field = "squareFeet"
	FieldTenure       Field = "tenure"
	FieldStatus       Field = "status"
	FieldLocation     Field = "location"
	FieldFeatures     Field = "features"
	FieldImageURL     Field = "imageUrl"
	FieldListingAgent Field = "listingAgent"
	FieldTown         Field = "town"
	FieldCounty       Field = "county"
	FieldSaleDate     Field = "saleDate"
)

// Fields lists the canonical fields in detection priority order.
var Fields = []Field{
	FieldTitle, FieldAddress, FieldPostcode, FieldPrice, FieldDescription,
	FieldPropertyType, FieldBedrooms, FieldBathrooms, FieldSquareFeet,
	FieldTenure, FieldStatus, FieldLocation, FieldFeatures, FieldImageURL,
	FieldListingAgent, FieldTown, FieldCounty, FieldSaleDate,
}

// FieldMapping maps a canonical field to the source header holding it.
// Absent fields are simply missing from the map.
type FieldMapping map[Field]string

// IdentityMapping maps every canonical field to a header of the same name.
func IdentityMapping() FieldMapping {
	m := make(FieldMapping, len(Fields))
	for _, f := range Fields {
		m[f] = string(f)
	}
	return m
}

// SourceRecord is a RawRow split by a FieldMapping: canonical values on one
// side, every unclaimed column on the other.
type SourceRecord struct {
	Values map[Field]any
	Extra  map[string]any
}

// Split applies the mapping to a row.
func (m FieldMapping) Split(row RawRow) SourceRecord {
	rec := SourceRecord{
		Values: make(map[Field]any, len(m)),
		Extra:  make(map[string]any),
	}
	claimed := make(map[string]struct{}, len(m))
	for field, header := range m {
		claimed[header] = struct{}{}
		if v, ok := row[header]; ok {
			rec.Values[field] = v
		}
	}
	for header, v := range row {
		if _, ok := claimed[header]; !ok {
			rec.Extra[header] = v
		}
	}
	return rec
}
