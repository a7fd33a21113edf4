package models

import "time"

// DataStatus is the lifecycle state of a stored record. A record is never
// physically deleted — when a URL disappears from a completed crawl run it
// moves to a vanished status and can come back to ACTIVE on a later run.
type DataStatus string

const (
	StatusActive   DataStatus = "ACTIVE"
	StatusInactive DataStatus = "INACTIVE"
	StatusDelisted DataStatus = "DELISTED"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// POI is one nearby point of interest (school, market, MRT station, ...)
// from a listing's life/utility environment data.
type POI struct {
	GeoLocation *GeoPoint `json:"geo_location"`
	Distance    *float64  `json:"distance"` // meters, nil when unparseable
	Name        string    `json:"name"`
	Category    string    `json:"category"`
}

// TradeRecord is one historical transaction attached to a listing.
// SoldDate is an ISO-8601 UTC timestamp string, nil when the source gave none.
type TradeRecord struct {
	Age          *float64 `json:"age"`
	Floor        string   `json:"floor"`
	Layout       string   `json:"layout"`
	Address      string   `json:"address"`
	AreaLand     *float64 `json:"areaLand"`
	SoldDate     *string  `json:"soldDate"`
	UniPrice     *float64 `json:"uniPrice"`
	TotalPrice   *float64 `json:"totalPrice"`
	AreaBuilding *float64 `json:"areaBuilding"`
}

// BasicInfo is the normalized view of a listing's open basic_info bag.
// Every field is a source-native free-text value; empty means the source
// had no matching key.
type BasicInfo struct {
	Orientation           string `json:"orientation"`
	BuildingArea          string `json:"building_area"`
	LandArea              string `json:"land_area"`
	ManagementFee         string `json:"management_fee"`
	PropertyType          string `json:"property_type"`
	PublicArea            string `json:"public_area"`
	AuxiliaryBuildingArea string `json:"auxiliary_building_area"`
}

// CanonicalListing is the unified, source-agnostic shape a raw listing is
// normalized into. URL is the stable merge/reconciliation key: it must stay
// identical for the same physical listing across crawl runs of one site.
type CanonicalListing struct {
	URL       string   `json:"url"`
	Site      string   `json:"site"`
	HouseID   string   `json:"house_id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	District  string   `json:"district"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	// Source-native free text, preserved as-is apart from CleanText.
	Price     string `json:"price"`
	Space     string `json:"space"`
	Layout    string `json:"layout"`
	Age       string `json:"age"`
	Floors    string `json:"floors"`
	Community string `json:"community"`

	BasicInfo   map[string]string `json:"basic_info"`
	Features    string            `json:"features"`
	LifeInfo    []POI             `json:"life_info"`
	UtilityInfo []POI             `json:"utility_info"`
	TradeData   []TradeRecord     `json:"trade_data"`
	Review      string            `json:"review"`
	Images      []string          `json:"images"`

	LastSeen   time.Time  `json:"last_seen"`
	DataStatus DataStatus `json:"data_status"`
}

// Key returns the reconciliation key.
func (l *CanonicalListing) Key() string { return l.URL }

// Seen stamps the listing as observed in the current run. Re-activation of a
// previously delisted URL happens here implicitly: every observation sets
// ACTIVE, there is no separate un-delist transition.
func (l *CanonicalListing) Seen(at time.Time) {
	l.LastSeen = at
	l.DataStatus = StatusActive
}
