package models

// ImportError records why the record at Index (position in the caller's
// input) could not be imported.
type ImportError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ImportResult aggregates per-record outcomes of a batch import.
// Successful+Failed always equals Total.
type ImportResult struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Errors     []ImportError `json:"errors"`
}

// InsightReport holds summary statistics over imported records.
type InsightReport struct {
	TotalRecords   int
	PricedRecords  int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Property
	ByPropertyType map[PropertyType]int
	ByStatus       map[Status]int
	ByLocation     map[string]int
}
