package models

import (
	"encoding/json"
	"time"
)

// RakuyaTrade is a transaction-centric record from the Rakuya real-price
// feed. It lives in its own table, scoped to that one source, and follows
// the same lifecycle as CanonicalListing except that the vanished status is
// INACTIVE instead of DELISTED.
type RakuyaTrade struct {
	HouseID  string `json:"house_id"`
	URL      string `json:"url"`
	CityCode int    `json:"city_code"`
	CityName string `json:"city_name"`

	Address       string `json:"address"`
	CommunityName string `json:"community_name"`
	AreaName      string `json:"area_name"`
	Zipcode       string `json:"zipcode"`

	PropertyType string  `json:"property_type"`
	TotalPrice   float64 `json:"total_price"`    // 萬
	PricePerPing float64 `json:"price_per_ping"` // 萬/坪
	TotalArea    float64 `json:"total_area"`     // 坪
	BuildingAge  float64 `json:"building_age"`

	FloorInfo   string `json:"floor_info"`
	TransFloor  string `json:"trans_floor"`
	SurFloor    string `json:"sur_floor"`
	Layout      string `json:"layout"`
	Bedrooms    int    `json:"bedrooms"`
	Livingrooms int    `json:"livingrooms"`
	Bathrooms   int    `json:"bathrooms"`

	CloseDate  string `json:"close_date"`
	TradeCount int    `json:"trade_count"`

	// A "current" transaction versus its enumerated historical predecessors.
	IsHistorical    bool            `json:"is_historical"`
	HistorySequence int             `json:"history_sequence"`
	HistoryData     json.RawMessage `json:"history_data"`

	BasicInfo    map[string]string `json:"basic_info"`
	OriginalData json.RawMessage   `json:"original_data"`

	ScrapedAt  time.Time  `json:"scraped_at"`
	LastSeen   time.Time  `json:"last_seen"`
	DataStatus DataStatus `json:"data_status"`
}

// Key returns the reconciliation key.
func (t *RakuyaTrade) Key() string { return t.URL }

// Seen stamps the trade record as observed in the current run.
func (t *RakuyaTrade) Seen(at time.Time) {
	t.LastSeen = at
	t.DataStatus = StatusActive
}
