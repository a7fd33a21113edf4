package services

import (
	"aidid-house/models"
)

// BuildListing assembles a CanonicalListing from one source's merged raw
// field map. Site-specific key quirks are resolved here (and in the merger's
// synonym table) so the reconciler only ever sees the canonical shape.
func BuildListing(source, url string, raw map[string]interface{}) *models.CanonicalListing {
	if url == "" {
		url = asString(first(raw, "url", "detail_url"))
	}

	address := asString(first(raw, "address", "full_address"))
	city := asString(raw["city"])
	district := asString(raw["district"])
	if city == "" || district == "" {
		c, d := SplitCityDistrict(address)
		if city == "" {
			city = c
		}
		if district == "" {
			district = d
		}
	}

	l := &models.CanonicalListing{
		URL:       url,
		Site:      source,
		HouseID:   asString(first(raw, "house_id", "item_id")),
		Name:      asString(first(raw, "name", "item_name")),
		Address:   address,
		City:      city,
		District:  district,
		Latitude:  asFloat(first(raw, "latitude", "itemLat", "lat")),
		Longitude: asFloat(first(raw, "longitude", "itemLng", "lng")),
		Price:     asString(raw["price"]),
		Space:     asString(first(raw, "space", "item_variant")),
		Layout:    asString(raw["layout"]),
		Age:       asString(raw["age"]),
		Floors:    asString(first(raw, "floors", "object_floor")),
		Community: asString(first(raw, "community_name", "community")),
		Features:  asString(first(raw, "features", "object_tag")),
		Review:    asString(raw["review"]),
	}

	if bag, ok := raw["basic_info"].(map[string]interface{}); ok {
		l.BasicInfo = make(map[string]string, len(bag))
		for k, v := range bag {
			l.BasicInfo[k] = asString(v)
		}
	}

	l.LifeInfo = NormalizePOIList(raw["life_info"])
	l.UtilityInfo = NormalizePOIList(raw["utility_info"])
	l.TradeData = NormalizeTradeHistory(raw["trade_data"])

	if imgs, ok := raw["images"].([]interface{}); ok {
		for _, img := range imgs {
			if s := asString(img); s != "" {
				l.Images = append(l.Images, s)
			}
		}
	}

	return l
}
