/*
Package factory provides JSON to Go resource conversion.

PURPOSE:
  Converts resource catalog entries (as exported from the resources table or
  typed into the admin UI) into inventory.Resource values, and back.

JSON SCHEMA:
  {
    "id": "excavator-cat-320",
    "name": "Excavator CAT 320",
    "type": "Equipment",
    "quantity": 3,
    "unit": "units",
    "cost": "1200.00",
    "returnable": true,
    "hour_rate": 95,
    "day_rate": null
  }

  Decimal fields accept JSON numbers or strings. Omitted or null rates mean
  "not set".

USAGE:
  f := factory.NewResourceFactory()
  res, err := f.ParseResource(jsonString)
  catalog, err := f.ParseCatalog(jsonArray)

SEE ALSO:
  - inventory/types.go: Resource type definition
  - api/scenarios.go: demo catalogs built from this schema
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/edifice/resource-engine/inventory"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ResourceJSON is the JSON representation of a resource.
type ResourceJSON struct {
	ID         string              `json:"id,omitempty"`
	Name       string              `json:"name"`
	Type       string              `json:"type"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Unit       string              `json:"unit"`
	Cost       decimal.Decimal     `json:"cost"`
	Returnable bool                `json:"returnable"`
	HourRate   decimal.NullDecimal `json:"hour_rate"`
	DayRate    decimal.NullDecimal `json:"day_rate"`
	Status     string              `json:"status,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// ResourceFactory creates resources from JSON.
type ResourceFactory struct{}

func NewResourceFactory() *ResourceFactory {
	return &ResourceFactory{}
}

// ParseResource parses and validates a single resource.
func (f *ResourceFactory) ParseResource(jsonStr string) (inventory.Resource, error) {
	var rj ResourceJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return inventory.Resource{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return f.Build(rj)
}

// ParseCatalog parses a JSON array of resources. The first invalid entry
// fails the whole catalog.
func (f *ResourceFactory) ParseCatalog(jsonStr string) ([]inventory.Resource, error) {
	var entries []ResourceJSON
	if err := json.Unmarshal([]byte(jsonStr), &entries); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	out := make([]inventory.Resource, 0, len(entries))
	for i, rj := range entries {
		r, err := f.Build(rj)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d (%s): %w", i, rj.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Build converts a decoded entry and validates it.
func (f *ResourceFactory) Build(rj ResourceJSON) (inventory.Resource, error) {
	r := inventory.Resource{
		ID:         inventory.ResourceID(rj.ID),
		Name:       strings.TrimSpace(rj.Name),
		Category:   parseCategory(rj.Type),
		Quantity:   rj.Quantity,
		Unit:       rj.Unit,
		Cost:       rj.Cost,
		Returnable: rj.Returnable,
		HourRate:   rj.HourRate,
		DayRate:    rj.DayRate,
	}
	if err := r.Validate(); err != nil {
		return inventory.Resource{}, err
	}
	r.Status = inventory.RawStatus(r.Quantity)
	return r, nil
}

// ToJSON converts a resource back to its JSON representation.
func ToJSON(r inventory.Resource) ResourceJSON {
	return ResourceJSON{
		ID:         string(r.ID),
		Name:       r.Name,
		Type:       string(r.Category),
		Quantity:   r.Quantity,
		Unit:       r.Unit,
		Cost:       r.Cost,
		Returnable: r.Returnable,
		HourRate:   r.HourRate,
		DayRate:    r.DayRate,
		Status:     string(r.Status),
	}
}

// parseCategory accepts any casing of the three categories.
func parseCategory(s string) inventory.Category {
	for _, c := range []inventory.Category{inventory.CategoryMaterial, inventory.CategoryEquipment, inventory.CategoryLabor} {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c
		}
	}
	return inventory.Category(s)
}
