package services

import (
	"testing"

	"aidid-house/utils"
)

func newTestMerger() *Merger { return NewMerger(utils.NewLogger()) }

func TestNormalizeFieldsSynonyms(t *testing.T) {
	m := newTestMerger()

	raw := map[string]interface{}{
		"dealId":      "A123",
		"addr":        "台北市信義區松仁路",
		"zipcodeArea": "信義區",
		"closePrice":  "1,234",
	}
	got := m.NormalizeFields(raw)

	if got["house_id"] != "A123" {
		t.Errorf("house_id: got %v", got["house_id"])
	}
	if got["address"] != "台北市信義區松仁路" {
		t.Errorf("address: got %v", got["address"])
	}
	if got["area_name"] != "信義區" {
		t.Errorf("area_name: got %v", got["area_name"])
	}
	if got["closePrice"] != "1,234" {
		t.Errorf("unmapped key must pass through, got %v", got["closePrice"])
	}

	original, ok := got[OriginalDataKey].(map[string]interface{})
	if !ok {
		t.Fatalf("missing %s", OriginalDataKey)
	}
	if original["dealId"] != "A123" || len(original) != 4 {
		t.Errorf("original data must keep pre-normalization keys: %v", original)
	}
}

func TestNormalizeFieldsCollision(t *testing.T) {
	m := newTestMerger()

	// Both keys map onto house_id with different truthy values: one wins the
	// canonical slot, the other stays recoverable under an alternate key.
	got := m.NormalizeFields(map[string]interface{}{
		"dealId": "A123",
		"sn":     "B456",
	})

	canonical := got["house_id"]
	if canonical != "A123" && canonical != "B456" {
		t.Fatalf("house_id: got %v", canonical)
	}
	var alt interface{}
	if canonical == "A123" {
		alt = got["house_id_from_sn"]
	} else {
		alt = got["house_id_from_dealId"]
	}
	if alt == nil {
		t.Errorf("colliding value was silently discarded: %v", got)
	}
}

func TestMergeDealsPrefersFirstKeepsAlternate(t *testing.T) {
	m := newTestMerger()

	dealList := []map[string]interface{}{
		{"dealId": "H1", "addr": "地址一", "closePrice": "1000"},
	}
	formatDealList := []map[string]interface{}{
		{"sn": "H1", "address": "地址二", "unitPrice": "45.5"},
	}

	merged := m.MergeDeals(dealList, formatDealList)
	if len(merged) != 1 {
		t.Fatalf("got %d merged deals, want 1", len(merged))
	}
	deal := merged[0]

	if deal["address"] != "地址一" {
		t.Errorf("accumulator value must win: got %v", deal["address"])
	}
	if deal["address_alt"] != "地址二" {
		t.Errorf("conflicting value must stay under address_alt: got %v", deal["address_alt"])
	}
	if deal["closePrice"] != "1000" || deal["unitPrice"] != "45.5" {
		t.Errorf("non-conflicting fields must merge: %v", deal)
	}
}

func TestMergeDealsOrderSwapPreservesBothValues(t *testing.T) {
	m := newTestMerger()

	a := []map[string]interface{}{{"dealId": "H1", "addr": "地址一"}}
	b := []map[string]interface{}{{"sn": "H1", "address": "地址二"}}

	for _, ordering := range [][2][]map[string]interface{}{{a, b}, {b, a}} {
		merged := m.MergeDeals(ordering[0], ordering[1])
		if len(merged) != 1 {
			t.Fatalf("got %d merged deals, want 1", len(merged))
		}
		deal := merged[0]

		// The canonical winner is order-sensitive; both observations must be
		// recoverable regardless of order.
		seen := map[string]bool{}
		for k, v := range deal {
			if k == "address" || k == "address_alt" {
				seen[asString(v)] = true
			}
		}
		if !seen["地址一"] || !seen["地址二"] {
			t.Errorf("order swap lost a value: %v", deal)
		}
	}
}

func TestMergeDealsFalsySlotTakesIncoming(t *testing.T) {
	m := newTestMerger()

	dealList := []map[string]interface{}{
		{"dealId": "H1", "community": ""},
	}
	formatDealList := []map[string]interface{}{
		{"sn": "H1", "communityName": "帝寶"},
	}

	merged := m.MergeDeals(dealList, formatDealList)
	if merged[0]["community_name"] != "帝寶" {
		t.Errorf("empty accumulator slot must take incoming value: %v", merged[0]["community_name"])
	}
}

func TestMergeDealsSkipsMissingHouseID(t *testing.T) {
	m := newTestMerger()

	merged := m.MergeDeals(
		[]map[string]interface{}{{"addr": "no id"}},
		[]map[string]interface{}{{"sn": "H2", "address": "有編號"}},
	)
	if len(merged) != 1 {
		t.Fatalf("got %d merged deals, want 1", len(merged))
	}
	if merged[0]["house_id"] != "H2" {
		t.Errorf("got %v", merged[0]["house_id"])
	}
}

func TestMergePayloads(t *testing.T) {
	m := newTestMerger()

	if got := m.MergePayloads(nil, nil); got != nil {
		t.Errorf("nil payloads: got %v", got)
	}

	detailOnly := m.MergePayloads(nil, map[string]interface{}{"addr": "僅詳情"})
	if detailOnly["address"] != "僅詳情" {
		t.Errorf("detail-only payload: got %v", detailOnly["address"])
	}

	merged := m.MergePayloads(
		map[string]interface{}{"addr": "摘要地址", "price": "900萬"},
		map[string]interface{}{"addrBuNo": "詳情地址", "layout": "3房2廳"},
	)
	if merged["address"] != "摘要地址" {
		t.Errorf("summary wins canonical slot: got %v", merged["address"])
	}
	if merged["address_alt"] != "詳情地址" {
		t.Errorf("detail value kept as alternate: got %v", merged["address_alt"])
	}
	if merged["layout"] != "3房2廳" || merged["price"] != "900萬" {
		t.Errorf("disjoint fields merge: %v", merged)
	}
}
