package models

// CrawlReport holds the aggregates computed over one batch of observed
// listings after reconciliation.
type CrawlReport struct {
	TotalListings int
	BySite        map[string]int
	ByCity        map[string]int

	// Prices in 萬, from listings whose raw price parsed.
	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *CanonicalListing
}
