package models

// Raw record kinds accepted from the crawling layer. Anything else is
// rejected at ingest.
const (
	KindRecord = "record"
	KindTouch  = "touch"
)

// RawRecord is the inbound envelope from the crawl/extraction layer: either
// a full raw field payload to normalize and persist, or a bare URL meaning
// "still active, detail scrape skipped".
//
// Summary and Detail hold the two crawl-stage payloads for one listing (a
// search-result blob and a detail-page blob). Either may be empty; when both
// are present they describe the same physical listing and get merged.
type RawRecord struct {
	Source  string                 `json:"source"`
	Kind    string                 `json:"kind"`
	URL     string                 `json:"url"`
	Summary map[string]interface{} `json:"summary,omitempty"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}
