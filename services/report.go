package services

import (
	"fmt"
	"sort"
	"strings"

	"aidid-house/models"
	"aidid-house/utils"
)

// ReportService computes and prints end-of-run aggregates over the listings
// a crawl batch observed.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService with the given logger.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate aggregates counts and price stats. Prices run through
// NormalizePrice, so only parseable values participate.
func (s *ReportService) Generate(listings []*models.CanonicalListing) *models.CrawlReport {
	report := &models.CrawlReport{
		BySite: make(map[string]int),
		ByCity: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.CanonicalListing
	var prices []float64

	for _, l := range listings {
		if l.Site != "" {
			report.BySite[l.Site]++
		}
		if l.City != "" {
			report.ByCity[l.City]++
		}
		if p := NormalizePrice(l.Price); p != nil && *p > 0 {
			priced = append(priced, l)
			prices = append(prices, *p)
		}
	}

	if len(priced) > 0 {
		report.PricedListings = len(priced)
		report.MinPrice = prices[0]
		report.MaxPrice = prices[0]
		report.MostExpensive = priced[0]
		var total float64
		for i, p := range prices {
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = priced[i]
			}
		}
		report.AveragePrice = round2(total / float64(len(prices)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	return report
}

// Print renders the report and the per-source run summaries.
func (s *ReportService) Print(r *models.CrawlReport, summaries []RunSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🏠 CRAWL RECONCILIATION REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Runs\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(summaries) == 0 {
		fmt.Printf("  No runs completed\n")
	}
	for _, sum := range summaries {
		fmt.Printf("  %-14s new: \033[1m%d\033[0m  refreshed: \033[1m%d\033[0m  touched: \033[1m%d\033[0m  swept: \033[1m%d\033[0m  errors: \033[1m%d\033[0m\n",
			truncate(sum.Source, 14), sum.New, sum.Refreshed, sum.Touched, sum.Delisted, sum.Errors)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Price Statistics (萬)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Printf("  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostExpensive.Name, 50))
		fmt.Printf("  Address : %s\n", r.MostExpensive.Address)
		fmt.Printf("  Price   : \033[1;31m%s\033[0m\n", FormatPrice(r.MostExpensive.Price))
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  Listings by City\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByCity) == 0 {
		fmt.Printf("  No city data\n")
	} else {
		type cityCount struct {
			city  string
			count int
		}
		var cities []cityCount
		for city, cnt := range r.ByCity {
			cities = append(cities, cityCount{city, cnt})
		}
		sort.Slice(cities, func(i, j int) bool {
			return cities[i].count > cities[j].count
		})
		for _, cc := range cities {
			bar := strings.Repeat("█", cc.count)
			fmt.Printf("  %-16s %s (%d)\n", truncate(cc.city, 14), bar, cc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
