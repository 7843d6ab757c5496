// Package cart turns a persona's eligible catalog items into cart payloads
// and submits them.
package cart

import (
	"diagflow/internal/catalog"
	"diagflow/internal/registry"
)

// DefaultCap bounds how many eligible items go into one cart.
const DefaultCap = 2

// LineItem is one product row of a cart payload.
type LineItem struct {
	ProductID       string   `json:"product_id"`
	Quantity        int      `json:"quantity"`
	BrandID         string   `json:"brand_id"`
	FamilyMemberIDs []string `json:"family_member_id"`
	LocationID      string   `json:"location_id"`
}

// Payload is the addCart request body.
type Payload struct {
	UserID     string     `json:"user_id"`
	LocationID string     `json:"lab_location_id"`
	LineItems  []LineItem `json:"product_details"`
	SlotGUID   string     `json:"slot_guid,omitempty"`
}

// Result is either a payload to submit or Empty, meaning there was nothing
// eligible to add. Empty is not a failure: callers skip the add step.
type Result struct {
	payload *Payload
}

// Empty is the result for an empty eligible set.
var Empty = Result{}

func Ok(p Payload) Result {
	return Result{payload: &p}
}

func (r Result) IsEmpty() bool {
	return r.payload == nil
}

// Payload returns the payload and true, or false for Empty.
func (r Result) Payload() (Payload, bool) {
	if r.payload == nil {
		return Payload{}, false
	}
	return *r.payload, true
}

// AssembleInput carries everything Assemble needs for one persona.
type AssembleInput struct {
	UserID        string
	BrandTitle    string
	LocationTitle string
	Eligible      []catalog.Item
	// Cap defaults to DefaultCap when zero or negative.
	Cap int
}

// Assemble resolves brand and location ids and builds one line item per
// eligible item, up to Cap. Every line names the persona itself as the only
// family member.
func Assemble(reg *registry.Registry, in AssembleInput) (Result, error) {
	brandID, err := reg.LookupID(registry.Brand, in.BrandTitle)
	if err != nil {
		return Empty, err
	}
	locationID, err := reg.LookupID(registry.Location, in.LocationTitle)
	if err != nil {
		return Empty, err
	}
	if len(in.Eligible) == 0 {
		return Empty, nil
	}

	limit := in.Cap
	if limit <= 0 {
		limit = DefaultCap
	}
	items := in.Eligible[:min(limit, len(in.Eligible))]

	lines := make([]LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, LineItem{
			ProductID:       it.InternalID,
			Quantity:        1,
			BrandID:         brandID,
			FamilyMemberIDs: []string{in.UserID},
			LocationID:      locationID,
		})
	}
	return Ok(Payload{
		UserID:     in.UserID,
		LocationID: locationID,
		LineItems:  lines,
	}), nil
}
