package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"aidid-house/models"
)

// Field normalization: pure functions turning one source's raw field shapes
// into the canonical record shapes. Every function here fails soft — page
// markup upstream is uncontrolled, so malformed input yields a nil/empty
// default instead of an error.

var (
	// numberRegexp captures the first decimal-or-integer token in free text
	numberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// cityDistrictRegexp splits a Taiwanese address into city and district
	// by their administrative suffixes
	cityDistrictRegexp = regexp.MustCompile(`^(.+?[市縣])(.+?[區鄉鎮市])`)
	// disallowedRegexp matches everything outside the text whitelist:
	// word characters, whitespace and a small set of punctuation
	disallowedRegexp = regexp.MustCompile(`[^\p{L}\p{N}_\s,./|:;?!-]`)
	// digitsRegexp matches a bare all-digit string
	digitsRegexp = regexp.MustCompile(`^\d+$`)
)

// NormalizePrice parses a raw price string into the canonical numeric value.
// A trailing 萬 suffix means the digits already denote ten-thousands, so the
// number is taken as-is; without the suffix the string is parsed as a plain
// number with no unit conversion. This is the authoritative stored value —
// the 6-digit display heuristic lives in FormatPrice and is never persisted.
func NormalizePrice(raw string) *float64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return nil
	}
	match := numberRegexp.FindString(s)
	if match == "" {
		return nil
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &val
}

// FormatPrice renders a raw price string for display in 萬 units. Bare
// numeric strings of 6+ digits are treated as full currency amounts and
// divided by 10,000; shorter ones are assumed to already be in 萬. Display
// formatting only — never use this for stored or sorted values.
func FormatPrice(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	s = strings.TrimSuffix(s, "萬")
	if s == "" {
		return ""
	}
	if digitsRegexp.MatchString(s) && len(s) >= 6 {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ""
		}
		return strconv.FormatFloat(n/10000, 'f', -1, 64) + "萬"
	}
	if numberRegexp.FindString(s) == "" {
		return ""
	}
	return s + "萬"
}

// NormalizeSpace extracts the first numeric token from a free-text area
// description such as "建坪 25.75坪 / 地坪 30.55坪".
func NormalizeSpace(raw string) *float64 {
	match := numberRegexp.FindString(raw)
	if match == "" {
		return nil
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &val
}

// basicInfoCandidates lists, per target field, the source key names tried in
// priority order. The canonical output key leads each list so that
// normalizing an already-normalized bag is a no-op.
var basicInfoCandidates = map[string][]string{
	"orientation":             {"orientation", "direction", "座向", "朝向", "大門朝向"},
	"building_area":           {"building_area", "mainSize", "主建物", "建坪"},
	"land_area":               {"land_area", "shareSize", "土地", "土地坪數", "地坪"},
	"management_fee":          {"management_fee", "manageFee", "管理費"},
	"property_type":           {"property_type", "itemUseType", "型態", "法定用途", "類型"},
	"public_area":             {"public_area", "公設比", "共同使用", "公共設施"},
	"auxiliary_building_area": {"auxiliary_building_area", "subSize", "附屬建物"},
}

// NormalizeBasicInfo maps an open bag of source-specific keys onto the fixed
// BasicInfo struct. For each target field the first present-and-non-empty
// candidate wins; the "--" placeholder never counts as a value for the
// public-area field. Unmatched source keys are dropped here (the raw bag is
// retained verbatim on the listing for audit).
func NormalizeBasicInfo(raw map[string]string) models.BasicInfo {
	pick := func(field string) string {
		for _, key := range basicInfoCandidates[field] {
			v := raw[key]
			if v == "" {
				continue
			}
			if field == "public_area" && v == "--" {
				continue
			}
			return v
		}
		return ""
	}
	return models.BasicInfo{
		Orientation:           pick("orientation"),
		BuildingArea:          pick("building_area"),
		LandArea:              pick("land_area"),
		ManagementFee:         pick("management_fee"),
		PropertyType:          pick("property_type"),
		PublicArea:            pick("public_area"),
		AuxiliaryBuildingArea: pick("auxiliary_building_area"),
	}
}

// BasicInfoFields renders a BasicInfo back into its canonical key/value bag.
func BasicInfoFields(bi models.BasicInfo) map[string]string {
	m := map[string]string{}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put("orientation", bi.Orientation)
	put("building_area", bi.BuildingArea)
	put("land_area", bi.LandArea)
	put("management_fee", bi.ManagementFee)
	put("property_type", bi.PropertyType)
	put("public_area", bi.PublicArea)
	put("auxiliary_building_area", bi.AuxiliaryBuildingArea)
	return m
}

// NormalizePOIList flattens the known raw environment-data shapes into a
// uniform POI sequence:
//
//   - a category map: {"school": [{"category": ..., "list": [...]}], ...}
//   - a group list:   [{"poiList": [{"pois": [...]}]}]
//   - flat POI dicts keyed poiLat/poiLng or lat/lng
//
// Unrecognized shapes yield an empty sequence.
func NormalizePOIList(raw interface{}) []models.POI {
	var out []models.POI

	switch v := raw.(type) {
	case map[string]interface{}:
		for parentKey, items := range v {
			list, ok := items.([]interface{})
			if !ok {
				continue
			}
			for _, it := range list {
				group, ok := it.(map[string]interface{})
				if !ok {
					continue
				}
				entries, ok := group["list"].([]interface{})
				if !ok {
					continue
				}
				category := asString(group["category"])
				if category == "" {
					category = parentKey
				}
				for _, e := range entries {
					entry, ok := e.(map[string]interface{})
					if !ok {
						continue
					}
					out = append(out, models.POI{
						GeoLocation: geoPoint(entry["lat"], entry["lng"]),
						Distance:    asFloat(entry["distance"]),
						Name:        asString(entry["name"]),
						Category:    category,
					})
				}
			}
		}
	case []interface{}:
		for _, el := range v {
			m, ok := el.(map[string]interface{})
			if !ok {
				continue
			}
			switch {
			case m["poiList"] != nil:
				groups, ok := m["poiList"].([]interface{})
				if !ok {
					continue
				}
				for _, g := range groups {
					group, ok := g.(map[string]interface{})
					if !ok {
						continue
					}
					pois, ok := group["pois"].([]interface{})
					if !ok {
						continue
					}
					for _, p := range pois {
						poi, ok := p.(map[string]interface{})
						if !ok {
							continue
						}
						out = append(out, models.POI{
							GeoLocation: geoPoint(poi["poiLatitude"], poi["poiLongitude"]),
							Distance:    asFloat(poi["distance"]),
							Name:        asString(poi["title"]),
							Category:    "life",
						})
					}
				}
			case m["poiLat"] != nil && m["poiLng"] != nil:
				name := firstString(m, "poiTitle", "name", "title")
				category := firstString(m, "poiSubName", "categoryTypeName")
				if category == "" {
					category = "life"
				}
				out = append(out, models.POI{
					GeoLocation: geoPoint(m["poiLat"], m["poiLng"]),
					Distance:    asFloat(m["distance"]),
					Name:        name,
					Category:    category,
				})
			case m["lat"] != nil && m["lng"] != nil:
				name := firstString(m, "name", "title")
				category := asString(m["categoryTypeName"])
				if category == "" {
					category = "life"
				}
				out = append(out, models.POI{
					GeoLocation: geoPoint(m["lat"], m["lng"]),
					Distance:    asFloat(m["distance"]),
					Name:        name,
					Category:    category,
				})
			}
		}
	}
	return out
}

// NormalizeTradeHistory accepts a single raw transaction dict or a list of
// them and resolves the synonymous field names the different feeds use.
// 5-digit all-numeric dates are Minguo-calendar YYYMM: 1911 is added to the
// year and the day fixed at 01; everything else passes through unchanged.
func NormalizeTradeHistory(raw interface{}) []models.TradeRecord {
	switch v := raw.(type) {
	case []interface{}:
		var out []models.TradeRecord
		for _, it := range v {
			if m, ok := it.(map[string]interface{}); ok {
				out = append(out, normalizeTradeItem(m))
			}
		}
		return out
	case map[string]interface{}:
		return []models.TradeRecord{normalizeTradeItem(v)}
	}
	return nil
}

func normalizeTradeItem(item map[string]interface{}) models.TradeRecord {
	rec := models.TradeRecord{
		Age:      asFloat(first(item, "age", "Age")),
		Layout:   asString(item["layout"]),
		AreaLand: asFloat(first(item, "areaLand", "landPin")),
	}

	switch {
	case item["floor"] != nil:
		rec.Floor = asString(item["floor"])
	case item["floorStart"] != nil && item["floorEnd"] != nil:
		rec.Floor = asString(item["floorStart"]) + "~" + asString(item["floorEnd"])
	case item["upFloor"] != nil:
		rec.Floor = asString(item["upFloor"])
	}

	rec.Address = asString(first(item, "address", "realAddress"))
	rec.SoldDate = normalizeSoldDate(first(item, "soldDate", "dealDate"))
	rec.UniPrice = asFloat(item["uniPrice"])
	rec.TotalPrice = asFloat(first(item, "totalPrice", "price"))
	rec.AreaBuilding = asFloat(first(item, "areaBuilding", "regPin"))
	return rec
}

func normalizeSoldDate(raw interface{}) *string {
	s := strings.TrimSpace(asString(raw))
	if s == "" {
		return nil
	}
	if digitsRegexp.MatchString(s) && len(s) == 5 {
		minguoYear, _ := strconv.Atoi(s[:3])
		month, _ := strconv.Atoi(s[3:5])
		iso := fmt.Sprintf("%04d-%02d-01T00:00:00Z", minguoYear+1911, month)
		return &iso
	}
	return &s
}

// CleanText strips characters outside the whitelist (word characters,
// whitespace, and ,./|:;?!-), then collapses runs of 3-or-more repeated
// non-word characters down to a single occurrence.
func CleanText(s string) string {
	s = disallowedRegexp.ReplaceAllString(s, "")
	return collapseRepeats(s)
}

func collapseRepeats(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		j := i + 1
		for j < len(runes) && runes[j] == r {
			j++
		}
		if run := j - i; run >= 3 && !isWordRune(r) {
			b.WriteRune(r)
		} else {
			for k := 0; k < run; k++ {
				b.WriteRune(r)
			}
		}
		i = j
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// CleanListing applies CleanText to every textual field of a listing.
// URLs, image lists and the JSON-bag fields are left untouched.
func CleanListing(l *models.CanonicalListing) {
	for _, f := range []*string{
		&l.Name, &l.Address, &l.City, &l.District, &l.Price, &l.Space,
		&l.Layout, &l.Age, &l.Floors, &l.Community, &l.Features, &l.Review,
	} {
		*f = CleanText(*f)
	}
}

// SplitCityDistrict derives city and district from a full address by
// matching the administrative suffixes (市/縣 then 區/鄉/鎮/市).
func SplitCityDistrict(address string) (city, district string) {
	m := cityDistrictRegexp.FindStringSubmatch(address)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// --- loose-typed JSON helpers ---

func first(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return fmt.Sprintf("%v", v)
}

func asFloat(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func geoPoint(lat, lng interface{}) *models.GeoPoint {
	la := asFloat(lat)
	ln := asFloat(lng)
	if la == nil || ln == nil {
		return nil
	}
	return &models.GeoPoint{Latitude: *la, Longitude: *ln}
}
