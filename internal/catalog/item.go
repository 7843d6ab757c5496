package catalog

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Item is one catalog test matched by a search.
type Item struct {
	InternalID             string         `json:"internalId"`
	ExternalID             string         `json:"externalId"`
	Name                   string         `json:"name"`
	Price                  float64        `json:"price"`
	OriginalPrice          float64        `json:"originalPrice"`
	DiscountPct            float64        `json:"discountPct"`
	Type                   string         `json:"type"`
	Status                 string         `json:"status"`
	HomeCollectionEligible bool           `json:"homeCollectionEligible"`
	Raw                    map[string]any `json:"-"`
}

// NormalizeHomeCollection maps the backend's assorted encodings of the
// home-collection flag onto a bool. It is applied once, at ingestion.
func NormalizeHomeCollection(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToUpper(strings.TrimSpace(x)) {
		case "AVAILABLE", "TRUE", "YES", "1":
			return true
		}
	case float64:
		return x == 1
	case int:
		return x == 1
	}
	return false
}

func itemFromJSON(row gjson.Result) Item {
	raw, _ := row.Value().(map[string]any)
	return Item{
		InternalID:             row.Get("_id").String(),
		ExternalID:             row.Get("test_id").String(),
		Name:                   row.Get("test_name").String(),
		Price:                  row.Get("price").Float(),
		OriginalPrice:          row.Get("original_price").Float(),
		DiscountPct:            row.Get("discount_percentage").Float(),
		Type:                   row.Get("Type").String(),
		Status:                 statusString(row.Get("status")),
		HomeCollectionEligible: NormalizeHomeCollection(row.Get("home_collection").Value()),
		Raw:                    raw,
	}
}

// Status values a catalog test can carry.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// statusString reads the catalog status. Older rows send 1/0 instead of
// ACTIVE/INACTIVE.
func statusString(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		if v.Int() == 1 {
			return StatusActive
		}
		return StatusInactive
	case gjson.String:
		return strings.ToUpper(strings.TrimSpace(v.String()))
	}
	return ""
}
