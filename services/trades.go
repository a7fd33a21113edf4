package services

import (
	"encoding/json"
	"strings"
	"time"

	"aidid-house/models"
)

// rakuyaCityNames maps the Rakuya feed's numeric city codes to city names.
var rakuyaCityNames = map[int]string{
	0:  "台北市",
	1:  "基隆市",
	2:  "新北市",
	3:  "宜蘭縣",
	4:  "桃園市",
	5:  "新竹市",
	6:  "新竹縣",
	7:  "苗栗縣",
	8:  "台中市",
	9:  "彰化縣",
	10: "南投縣",
	11: "雲林縣",
	12: "嘉義市",
	13: "嘉義縣",
	14: "台南市",
	15: "高雄市",
	16: "澎湖縣",
	17: "屏東縣",
	18: "台東縣",
	19: "花蓮縣",
	20: "金門連江",
}

// RakuyaCityName resolves a city code to its name, empty for unknown codes.
func RakuyaCityName(code int) string {
	return rakuyaCityNames[code]
}

// BuildTrade assembles a RakuyaTrade from one merged real-price deal map
// (the output of Merger.MergeDeals). All numeric parsing fails soft to zero
// values, matching the feed's loose typing.
func BuildTrade(raw map[string]interface{}) *models.RakuyaTrade {
	t := &models.RakuyaTrade{
		HouseID:       asString(raw["house_id"]),
		URL:           asString(raw["detail_url"]),
		CityCode:      intOrZero(raw["city_code"]),
		Address:       asString(raw["address"]),
		CommunityName: asString(raw["community_name"]),
		AreaName:      asString(raw["area_name"]),
		Zipcode:       asString(raw["zipcode"]),
		PropertyType:  asString(raw["sellType"]),
		Layout:        asString(raw["layout"]),
		CloseDate:     asString(raw["closeDate"]),
		ScrapedAt:     time.Now().UTC(),
	}

	t.CityName = asString(raw["cityName"])
	if t.CityName == "" {
		t.CityName = RakuyaCityName(t.CityCode)
	}

	t.TotalPrice = floatOrZero(raw["closePrice"])
	t.PricePerPing = floatOrZero(raw["unitPrice"])
	t.TotalArea = floatOrZero(raw["total_size"])

	buildYear := strings.ReplaceAll(asString(raw["buildYear"]), "年", "")
	if f := asFloat(buildYear); f != nil {
		t.BuildingAge = *f
	}

	transFloor := asString(raw["trans_floor"])
	surFloor := asString(raw["sur_floor"])
	if transFloor != "" && surFloor != "" {
		t.FloorInfo = transFloor + "/" + surFloor
	} else {
		t.FloorInfo = asString(raw["building_floor"])
	}
	t.TransFloor = transFloor
	t.SurFloor = surFloor

	t.Bedrooms = roomCount(raw["bedrooms"], "房", "室")
	t.Livingrooms = roomCount(raw["livingrooms"], "廳", "室")
	t.Bathrooms = roomCount(raw["bathrooms"], "衛", "浴")

	t.TradeCount = intOrZero(raw["history_total"])
	if t.TradeCount == 0 {
		t.TradeCount = 1
	}
	t.IsHistorical = boolOrFalse(raw["is_historical"])
	t.HistorySequence = intOrZero(raw["history_sequence"])

	if h := raw["history_data"]; h != nil {
		if encoded, err := json.Marshal(h); err == nil {
			t.HistoryData = encoded
			if m, ok := h.(map[string]interface{}); ok {
				if hist, ok := m["history"].([]interface{}); ok && len(hist) > 0 {
					t.TradeCount = len(hist)
				}
			}
		}
	}

	t.BasicInfo = map[string]string{}
	for _, key := range []string{
		"garage", "garageSizeDesc", "garagePriceDesc", "garage_size",
		"garagePrice", "pattern", "buildingNo", "addrZipcode",
		"typecode", "buildingAge", "builddate",
	} {
		if v := asString(raw[key]); v != "" {
			t.BasicInfo[key] = v
		}
	}

	if orig := raw[OriginalDataKey]; orig != nil {
		if encoded, err := json.Marshal(orig); err == nil {
			t.OriginalData = encoded
		}
	}

	return t
}

func roomCount(v interface{}, suffixes ...string) int {
	s := strings.TrimSpace(asString(v))
	for _, suffix := range suffixes {
		s = strings.ReplaceAll(s, suffix, "")
	}
	if s == "" {
		return 0
	}
	if f := asFloat(s); f != nil {
		return int(*f)
	}
	return 0
}

func floatOrZero(v interface{}) float64 {
	if f := asFloat(v); f != nil {
		return *f
	}
	return 0
}

func intOrZero(v interface{}) int {
	if f := asFloat(v); f != nil {
		return int(*f)
	}
	return 0
}

func boolOrFalse(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}
