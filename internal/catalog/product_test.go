package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[7, "sku-9", "007", null]`), &ids))
	assert.Equal(t, []ID{"7", "sku-9", "007", ""}, ids)

	out, err := json.Marshal(ids[:3])
	require.NoError(t, err)
	assert.JSONEq(t, `[7, "sku-9", "007"]`, string(out))
}

func TestIDRejectsObjects(t *testing.T) {
	var id ID
	require.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
}

func TestPriceDecimal(t *testing.T) {
	var p Price
	require.NoError(t, json.Unmarshal([]byte(`50.50`), &p))
	d, ok := p.Decimal()
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("50.5")))

	_, ok = Price("free").Decimal()
	assert.False(t, ok)
	_, ok = Price("").Decimal()
	assert.False(t, ok)
}

func TestProductRoundTripKeepsUnknownAttributes(t *testing.T) {
	raw := `{"id":12,"name":"Mug","price":"100.00","stock":4,"category":3,"category_name":"Kitchen",
		"image":"/media/mug.png","shop":2,"shop_name":"Clay","rating":4.5,"tags":["a","b"]}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, ID("12"), p.ID)
	assert.Equal(t, Price("100.00"), p.Price)
	require.NotNil(t, p.Stock)
	assert.Equal(t, 4, *p.Stock)
	assert.Equal(t, ID("3"), p.Category)
	assert.Equal(t, ID("2"), p.Shop)
	require.Contains(t, p.Extra, "rating")
	require.Contains(t, p.Extra, "tags")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestUnmarshalFlatReturnsReservedKeys(t *testing.T) {
	var p Product
	taken, err := p.UnmarshalFlat([]byte(`{"id":"a","name":"x","price":1,"quantity":3}`), "quantity")
	require.NoError(t, err)
	assert.Nil(t, p.Extra)
	assert.JSONEq(t, `3`, string(taken["quantity"]))

	out, err := p.MarshalFlat(map[string]any{"quantity": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","name":"x","price":"1","quantity":3}`, string(out))
}

func TestUnmarshalFlatRejectsNonObjects(t *testing.T) {
	var p Product
	_, err := p.UnmarshalFlat([]byte(`null`))
	require.Error(t, err)
	_, err = p.UnmarshalFlat([]byte(`[1]`))
	require.Error(t, err)
}
