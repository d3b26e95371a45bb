package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"property-ingest/models"
	"property-ingest/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises a set of stored records. Records without a price
// are counted but excluded from the price statistics.
func (s *InsightService) Generate(properties []models.Property) *models.InsightReport {
	report := &models.InsightReport{
		ByPropertyType: make(map[models.PropertyType]int),
		ByStatus:       make(map[models.Status]int),
		ByLocation:     make(map[string]int),
	}

	if len(properties) == 0 {
		return report
	}

	report.TotalRecords = len(properties)

	var total float64
	for i := range properties {
		p := &properties[i]
		report.ByPropertyType[p.PropertyType]++
		report.ByStatus[p.Status]++
		if p.Location != "" {
			report.ByLocation[p.Location]++
		}
		if p.Price <= 0 {
			continue
		}
		if report.PricedRecords == 0 || p.Price < report.MinPrice {
			report.MinPrice = p.Price
		}
		if report.PricedRecords == 0 || p.Price > report.MaxPrice {
			report.MaxPrice = p.Price
			report.MostExpensive = p
		}
		report.PricedRecords++
		total += p.Price
	}

	if report.PricedRecords > 0 {
		report.AveragePrice = round2(total / float64(report.PricedRecords))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	s.logger.Debug("[insights] %d records, %d priced", report.TotalRecords, report.PricedRecords)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  PROPERTY IMPORT INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Records stored : \033[1m%d\033[0m\n", r.TotalRecords)
	fmt.Fprintf(w, "  With a price   : \033[1m%d\033[0m\n", r.PricedRecords)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedRecords > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", formatPounds(r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", formatPounds(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", formatPounds(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Property\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Address : %s\n", truncate(r.MostExpensive.Address, 50))
		fmt.Fprintf(w, "  Price   : \033[1;31m%s\033[0m\n", formatPounds(r.MostExpensive.Price))
		fmt.Fprintln(w)
	}

	printCounts(w, "By Property Type", thin, stringKeys(r.ByPropertyType))
	printCounts(w, "By Status", thin, stringKeys(r.ByStatus))
	printCounts(w, "By Location", thin, r.ByLocation)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

type labelCount struct {
	label string
	count int
}

// sortedCounts orders by count descending, then label.
func sortedCounts(counts map[string]int) []labelCount {
	out := make([]labelCount, 0, len(counts))
	for label, n := range counts {
		if label != "" {
			out = append(out, labelCount{label, n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].label < out[j].label
	})
	return out
}

func printCounts(w io.Writer, heading, thin string, counts map[string]int) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", heading)
	fmt.Fprintf(w, "  %s\n", thin)
	rows := sortedCounts(counts)
	if len(rows) == 0 {
		fmt.Fprintf(w, "  No data\n")
	}
	for _, lc := range rows {
		bar := strings.Repeat("█", min(lc.count, 40))
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(lc.label, 28), bar, lc.count)
	}
	fmt.Fprintln(w)
}

func stringKeys[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
