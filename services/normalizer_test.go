package services

import (
	"testing"

	"aidid-house/models"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1,314萬", 1314, true},
		{"13140000", 13140000, true}, // no 萬 suffix ⇒ no division
		{"888萬", 888, true},
		{"  2,580 萬 ", 2580, true},
		{"", 0, false},
		{"面議", 0, false},
	}

	for _, tt := range tests {
		got := NormalizePrice(tt.raw)
		if tt.ok {
			if got == nil {
				t.Errorf("NormalizePrice(%q) = nil; want %.2f", tt.raw, tt.want)
			} else if *got != tt.want {
				t.Errorf("NormalizePrice(%q) = %.2f; want %.2f", tt.raw, *got, tt.want)
			}
		} else if got != nil {
			t.Errorf("NormalizePrice(%q) = %.2f; want nil", tt.raw, *got)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"13140000", "1314萬"}, // 6+ digits ⇒ full amount, divided for display
		{"1314", "1314萬"},     // under 6 digits ⇒ already in 萬
		{"1,314萬", "1314萬"},
		{"", ""},
		{"面議", ""},
	}

	for _, tt := range tests {
		if got := FormatPrice(tt.raw); got != tt.want {
			t.Errorf("FormatPrice(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeSpace(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"建坪 25.75坪 / 地坪 30.55坪", 25.75, true},
		{"42坪", 42, true},
		{"主建物 18.2", 18.2, true},
		{"", 0, false},
		{"無資料", 0, false},
	}

	for _, tt := range tests {
		got := NormalizeSpace(tt.raw)
		if tt.ok {
			if got == nil || *got != tt.want {
				t.Errorf("NormalizeSpace(%q) = %v; want %.2f", tt.raw, got, tt.want)
			}
		} else if got != nil {
			t.Errorf("NormalizeSpace(%q) = %.2f; want nil", tt.raw, *got)
		}
	}
}

func TestNormalizeBasicInfoPriority(t *testing.T) {
	raw := map[string]string{
		"direction": "朝南",
		"座向":        "朝北", // loses to direction
		"主建物":       "25.75坪",
		"土地":        "30.1坪",
		"管理費":       "2000元/月",
		"型態":        "電梯大樓",
		"公設比":       "--", // placeholder, never a value
		"共同使用":      "32%",
		"subSize":   "3.2坪",
	}

	got := NormalizeBasicInfo(raw)
	if got.Orientation != "朝南" {
		t.Errorf("Orientation: got %q, want 朝南", got.Orientation)
	}
	if got.BuildingArea != "25.75坪" {
		t.Errorf("BuildingArea: got %q, want 25.75坪", got.BuildingArea)
	}
	if got.PublicArea != "32%" {
		t.Errorf("PublicArea: got %q, want 32%% (placeholder must be skipped)", got.PublicArea)
	}
	if got.AuxiliaryBuildingArea != "3.2坪" {
		t.Errorf("AuxiliaryBuildingArea: got %q, want 3.2坪", got.AuxiliaryBuildingArea)
	}
}

func TestNormalizeBasicInfoIdempotent(t *testing.T) {
	first := NormalizeBasicInfo(map[string]string{
		"朝向":       "朝東",
		"建坪":       "40坪",
		"manageFee": "1500",
		"類型":       "公寓",
	})

	second := NormalizeBasicInfo(BasicInfoFields(first))
	if second != first {
		t.Errorf("normalizing canonical output again changed it:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizePOIListShapes(t *testing.T) {
	categoryMap := map[string]interface{}{
		"school": []interface{}{
			map[string]interface{}{
				"category": "國小",
				"list": []interface{}{
					map[string]interface{}{"lat": 25.03, "lng": 121.56, "distance": "120", "name": "大安國小"},
					map[string]interface{}{"distance": "bad"},
				},
			},
		},
	}

	pois := NormalizePOIList(categoryMap)
	if len(pois) != 2 {
		t.Fatalf("category map: got %d POIs, want 2", len(pois))
	}
	if pois[0].Category != "國小" || pois[0].Name != "大安國小" {
		t.Errorf("category map: first POI = %+v", pois[0])
	}
	if pois[0].Distance == nil || *pois[0].Distance != 120 {
		t.Errorf("category map: distance = %v, want 120", pois[0].Distance)
	}
	if pois[0].GeoLocation == nil || pois[0].GeoLocation.Latitude != 25.03 {
		t.Errorf("category map: geo = %+v", pois[0].GeoLocation)
	}
	if pois[1].Distance != nil {
		t.Errorf("unparseable distance should be nil, got %v", *pois[1].Distance)
	}
	if pois[1].Name != "" {
		t.Errorf("missing name should default to empty string, got %q", pois[1].Name)
	}

	groupList := []interface{}{
		map[string]interface{}{
			"poiList": []interface{}{
				map[string]interface{}{
					"pois": []interface{}{
						map[string]interface{}{"poiLatitude": 24.1, "poiLongitude": 120.6, "distance": 88.5, "title": "全聯"},
					},
				},
			},
		},
	}
	pois = NormalizePOIList(groupList)
	if len(pois) != 1 || pois[0].Name != "全聯" || pois[0].Category != "life" {
		t.Errorf("group list: got %+v", pois)
	}

	flat := []interface{}{
		map[string]interface{}{"poiLat": 22.6, "poiLng": 120.3, "poiTitle": "捷運站", "poiSubName": "transport"},
		map[string]interface{}{"lat": 22.7, "lng": 120.4, "name": "公園"},
	}
	pois = NormalizePOIList(flat)
	if len(pois) != 2 {
		t.Fatalf("flat list: got %d POIs, want 2", len(pois))
	}
	if pois[0].Category != "transport" {
		t.Errorf("flat poiLat shape: category = %q, want transport", pois[0].Category)
	}
	if pois[1].Category != "life" {
		t.Errorf("flat lat shape: category = %q, want life", pois[1].Category)
	}

	if got := NormalizePOIList("garbage"); len(got) != 0 {
		t.Errorf("unrecognized shape should yield empty, got %d", len(got))
	}
	if got := NormalizePOIList(nil); len(got) != 0 {
		t.Errorf("nil input should yield empty, got %d", len(got))
	}
}

func TestNormalizeTradeHistoryMinguoDates(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"11203", "2023-03-01T00:00:00Z"},
		{"09912", "2010-12-01T00:00:00Z"},
		{"2023-05-20", "2023-05-20"}, // not 5 digits, passes through
		{"113001", "113001"},         // 6 digits, passes through
	}

	for _, tt := range tests {
		recs := NormalizeTradeHistory(map[string]interface{}{"soldDate": tt.raw})
		if len(recs) != 1 {
			t.Fatalf("soldDate %q: got %d records", tt.raw, len(recs))
		}
		if recs[0].SoldDate == nil || *recs[0].SoldDate != tt.want {
			t.Errorf("soldDate %q: got %v, want %q", tt.raw, recs[0].SoldDate, tt.want)
		}
	}

	recs := NormalizeTradeHistory(map[string]interface{}{"soldDate": "   "})
	if recs[0].SoldDate != nil {
		t.Errorf("whitespace-only date: got %q, want nil", *recs[0].SoldDate)
	}
}

func TestNormalizeTradeHistorySynonyms(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{
			"Age":         "12.5",
			"landPin":     30.2,
			"price":       1500.0,
			"regPin":      "45.8",
			"realAddress": "台北市大安區和平東路",
			"floorStart":  3,
			"floorEnd":    5,
			"dealDate":    "10807",
		},
	}

	recs := NormalizeTradeHistory(raw)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Age == nil || *r.Age != 12.5 {
		t.Errorf("Age synonym: got %v", r.Age)
	}
	if r.AreaLand == nil || *r.AreaLand != 30.2 {
		t.Errorf("landPin synonym: got %v", r.AreaLand)
	}
	if r.TotalPrice == nil || *r.TotalPrice != 1500 {
		t.Errorf("price synonym: got %v", r.TotalPrice)
	}
	if r.AreaBuilding == nil || *r.AreaBuilding != 45.8 {
		t.Errorf("regPin synonym: got %v", r.AreaBuilding)
	}
	if r.Floor != "3~5" {
		t.Errorf("floorStart/floorEnd: got %q, want 3~5", r.Floor)
	}
	if r.Address != "台北市大安區和平東路" {
		t.Errorf("realAddress synonym: got %q", r.Address)
	}
	if r.SoldDate == nil || *r.SoldDate != "2019-07-01T00:00:00Z" {
		t.Errorf("dealDate Minguo: got %v", r.SoldDate)
	}
}

func TestNormalizeTradeHistoryShapes(t *testing.T) {
	if got := NormalizeTradeHistory(nil); got != nil {
		t.Errorf("nil input: got %v", got)
	}
	if got := NormalizeTradeHistory("not a dict"); got != nil {
		t.Errorf("bad shape: got %v", got)
	}
	single := NormalizeTradeHistory(map[string]interface{}{"layout": "3房2廳"})
	if len(single) != 1 || single[0].Layout != "3房2廳" {
		t.Errorf("single dict: got %+v", single)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"明亮三房★★★近捷運", "明亮三房近捷運"},
		{"格局方正!!!!", "格局方正!"},
		{"採光好,通風佳", "採光好,通風佳"},
		{"top floor / city view", "top floor / city view"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanText(tt.raw); got != tt.want {
			t.Errorf("CleanText(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanListingSkipsURLsAndImages(t *testing.T) {
	l := &models.CanonicalListing{
		URL:      "https://example.com/house/1?a=1&b=2",
		Name:     "豪宅!!!!",
		Features: "近捷運|學區★★★★",
		Images:   []string{"https://example.com/img.jpg?sig=★★★"},
	}
	CleanListing(l)

	if l.URL != "https://example.com/house/1?a=1&b=2" {
		t.Errorf("URL must not be cleaned, got %q", l.URL)
	}
	if l.Images[0] != "https://example.com/img.jpg?sig=★★★" {
		t.Errorf("image URLs must not be cleaned, got %q", l.Images[0])
	}
	if l.Name != "豪宅!" {
		t.Errorf("Name: got %q, want 豪宅!", l.Name)
	}
	if l.Features != "近捷運|學區" {
		t.Errorf("Features: got %q, want 近捷運|學區", l.Features)
	}
}

func TestSplitCityDistrict(t *testing.T) {
	tests := []struct {
		address  string
		city     string
		district string
	}{
		{"台北市大安區和平東路二段", "台北市", "大安區"},
		{"新竹縣竹北市光明六路", "新竹縣", "竹北市"},
		{"高雄市鳳山區文衡路", "高雄市", "鳳山區"},
		{"no administrative suffix", "", ""},
	}

	for _, tt := range tests {
		city, district := SplitCityDistrict(tt.address)
		if city != tt.city || district != tt.district {
			t.Errorf("SplitCityDistrict(%q) = (%q, %q); want (%q, %q)",
				tt.address, city, district, tt.city, tt.district)
		}
	}
}
