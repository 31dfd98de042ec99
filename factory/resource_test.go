package factory

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edifice/resource-engine/inventory"
)

func TestParseResource(t *testing.T) {
	f := NewResourceFactory()

	r, err := f.ParseResource(`{
		"id": "excavator",
		"name": "  Excavator CAT 320 ",
		"type": "equipment",
		"quantity": 3,
		"unit": "units",
		"cost": "1200.00",
		"returnable": true,
		"hour_rate": 95
	}`)
	require.NoError(t, err)

	assert.Equal(t, inventory.ResourceID("excavator"), r.ID)
	assert.Equal(t, "Excavator CAT 320", r.Name)
	assert.Equal(t, inventory.CategoryEquipment, r.Category)
	assert.True(t, r.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, r.Cost.Equal(decimal.NewFromInt(1200)))
	assert.True(t, r.HourRate.Valid)
	assert.False(t, r.DayRate.Valid)
	assert.Equal(t, inventory.PricingHourly, r.PricingMode())
	assert.Equal(t, inventory.StatusAvailable, r.Status)
}

func TestParseResource_Invalid(t *testing.T) {
	f := NewResourceFactory()

	tests := []struct {
		name string
		json string
	}{
		{"bad type", `{"name": "X", "type": "Tool", "quantity": 1, "cost": 1}`},
		{"missing name", `{"type": "Material", "quantity": 1, "cost": 1}`},
		{"negative quantity", `{"name": "X", "type": "Material", "quantity": -1, "cost": 1}`},
		{"both rates", `{"name": "X", "type": "Equipment", "quantity": 1, "cost": 1, "returnable": true, "hour_rate": 1, "day_rate": 1}`},
		{"rate on consumable", `{"name": "X", "type": "Material", "quantity": 1, "cost": 1, "day_rate": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseResource(tt.json)
			assert.True(t, inventory.IsValidation(err), "got %v", err)
		})
	}

	_, err := f.ParseResource(`{not json`)
	assert.Error(t, err)
}

func TestParseCatalog_ReportsEntry(t *testing.T) {
	f := NewResourceFactory()

	_, err := f.ParseCatalog(`[
		{"name": "Sand", "type": "Material", "quantity": 10, "cost": 1},
		{"name": "Crane", "type": "Equipment", "quantity": 1, "cost": 0, "day_rate": 5}
	]`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog entry 1 (Crane)")
	assert.True(t, inventory.IsValidation(err))
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := NewResourceFactory()
	in, err := f.ParseResource(`{"id": "crew", "name": "Carpenters", "type": "Labor", "quantity": 0, "unit": "workers", "cost": 280}`)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusOutOfStock, in.Status)

	data, err := json.Marshal(ToJSON(in))
	require.NoError(t, err)
	out, err := f.ParseResource(string(data))
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Category, out.Category)
	assert.True(t, in.Cost.Equal(out.Cost))
	assert.False(t, out.HourRate.Valid)
}
