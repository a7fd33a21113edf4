package services

import (
	"reflect"

	"aidid-house/utils"
)

// OriginalDataKey holds each input's untouched pre-normalization field map
// inside a merged record, for audit and manual replay.
const OriginalDataKey = "_original_data"

// fieldSynonyms maps the source-specific key names the summary and detail
// payloads use onto one canonical key each.
var fieldSynonyms = map[string]string{
	"dealId": "house_id",
	"sn":     "house_id",

	"addr":     "address",
	"addrBuNo": "address",

	"zipcodeArea": "area_name",
	"areaName":    "area_name",

	"community":     "community_name",
	"communityName": "community_name",

	"realpriceDetailUrl": "detail_url",
	"url":                "detail_url",

	"transFloor":     "trans_floor",
	"transFloors":    "trans_floor",
	"surFloor":       "sur_floor",
	"surFloors":      "sur_floor",
	"buildingFloor":  "building_floor",
	"buildingFloors": "building_floor",

	"snGrountCnt":  "history_total",
	"historyTotal": "history_total",

	"garageSize": "garage_size",
	"totalSize":  "total_size",
}

// Merger combines two partially-overlapping raw payloads that describe the
// same physical listing, keyed by house_id. Conflicting values are never
// dropped: the first-seen value keeps the canonical slot and the other is
// stored under an alternate key.
type Merger struct {
	logger *utils.Logger
}

// NewMerger creates a Merger with the given logger.
func NewMerger(logger *utils.Logger) *Merger {
	return &Merger{logger: logger}
}

// NormalizeFields remaps a raw payload's keys through the synonym table.
// When two source keys collapse onto one canonical key with differing truthy
// values, the extra value is kept under "<key>_from_<originalKey>". The full
// original map is attached under OriginalDataKey.
func (m *Merger) NormalizeFields(raw map[string]interface{}) map[string]interface{} {
	normalized := make(map[string]interface{}, len(raw)+1)
	original := make(map[string]interface{}, len(raw))

	for key, value := range raw {
		unified, ok := fieldSynonyms[key]
		if !ok {
			unified = key
		}

		if existing, dup := normalized[unified]; dup && truthy(value) && !reflect.DeepEqual(existing, value) {
			normalized[unified+"_from_"+key] = value
		} else if truthy(value) || !dup {
			normalized[unified] = value
		}

		original[key] = value
	}

	normalized[OriginalDataKey] = original
	return normalized
}

// MergeDeals merges a summary-list payload with a detail-list payload. Both
// lists are normalized first, then accumulated by house_id: empty or falsy
// accumulator slots take the incoming value; a conflicting truthy value stays
// recoverable under "<key>_alt".
func (m *Merger) MergeDeals(dealList, formatDealList []map[string]interface{}) []map[string]interface{} {
	merged := make(map[string]map[string]interface{})
	var order []string

	for _, deal := range dealList {
		normalized := m.NormalizeFields(deal)
		id := asString(normalized["house_id"])
		if id == "" {
			continue
		}
		merged[id] = normalized
		order = append(order, id)
	}

	for _, deal := range formatDealList {
		normalized := m.NormalizeFields(deal)
		id := asString(normalized["house_id"])
		if id == "" {
			continue
		}
		acc, seen := merged[id]
		if !seen {
			merged[id] = normalized
			order = append(order, id)
			continue
		}
		m.mergeInto(acc, normalized)
	}

	out := make([]map[string]interface{}, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out
}

// MergePayloads merges one listing's summary and detail payloads. Either map
// may be nil.
func (m *Merger) MergePayloads(summary, detail map[string]interface{}) map[string]interface{} {
	if summary == nil && detail == nil {
		return nil
	}
	if summary == nil {
		return m.NormalizeFields(detail)
	}
	acc := m.NormalizeFields(summary)
	if detail != nil {
		m.mergeInto(acc, m.NormalizeFields(detail))
	}
	return acc
}

func (m *Merger) mergeInto(acc, incoming map[string]interface{}) {
	for key, value := range incoming {
		existing, ok := acc[key]
		switch {
		case !ok || !truthy(existing):
			acc[key] = value
		case !reflect.DeepEqual(existing, value):
			m.logger.Debug("[merger] conflict on %q, keeping first value and %s_alt", key, key)
			acc[key+"_alt"] = value
		}
	}
}

// truthy mirrors the emptiness rules the raw feeds assume: nil, empty
// strings, zero numbers, false, and empty containers all count as absent.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case map[string]interface{}:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	}
	return true
}
