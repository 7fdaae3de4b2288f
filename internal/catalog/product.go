// Package catalog holds the product snapshot types shared by the cart and view history.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is the remote identity of a product, shop or category. The remote API emits
// integers while some fixtures use strings; both decode into the same canonical text.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Price is decimal text kept exactly as received and parsed at read time.
type Price string

// Decimal parses the price. Empty or malformed text reports ok=false.
func (p Price) Decimal() (decimal.Decimal, bool) {
	text := strings.TrimSpace(string(p))
	if text == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: price must be a string or number: %w", err)
	}
	*p = Price(n.String())
	return nil
}

// Product is a snapshot of a product's attributes captured at a point in time.
// Attributes this type does not model are kept in Extra so snapshots round-trip.
type Product struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        Price  `json:"price"`
	Stock        *int   `json:"stock,omitempty"`
	Category     ID     `json:"category,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	Image        string `json:"image,omitempty"`
	Shop         ID     `json:"shop,omitempty"`
	ShopName     string `json:"shop_name,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var productFields = []string{
	"id", "name", "description", "price", "stock", "category", "category_name",
	"image", "shop", "shop_name", "created_at",
}

// productAlias drops the custom marshalers so the struct tags apply.
type productAlias Product

func (p Product) MarshalJSON() ([]byte, error) {
	return p.MarshalFlat(nil)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	_, err := p.UnmarshalFlat(data)
	return err
}

// MarshalFlat encodes the snapshot as a single JSON object together with Extra and
// the given additional top-level fields.
func (p Product) MarshalFlat(fields map[string]any) ([]byte, error) {
	base, err := json.Marshal(productAlias(p))
	if err != nil {
		return nil, err
	}
	obj := make(map[string]json.RawMessage, len(p.Extra)+len(productFields)+len(fields))
	for k, v := range p.Extra {
		obj[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		obj[k] = v
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("catalog: encode %s: %w", k, err)
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// UnmarshalFlat decodes the snapshot from a flattened object. Keys listed in reserved
// are not kept in Extra; they are returned to the caller instead.
func (p *Product) UnmarshalFlat(data []byte, reserved ...string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("catalog: product snapshot must be an object")
	}
	var alias productAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return nil, err
	}
	*p = Product(alias)
	p.Extra = nil

	taken := make(map[string]json.RawMessage, len(reserved))
	for _, k := range reserved {
		if v, ok := obj[k]; ok {
			taken[k] = v
		}
		delete(obj, k)
	}
	for _, k := range productFields {
		delete(obj, k)
	}
	if len(obj) > 0 {
		p.Extra = obj
	}
	return taken, nil
}

// UnitPrice returns the parsed price, or zero with ok=false when it cannot be parsed.
func (p Product) UnitPrice() (decimal.Decimal, bool) {
	return p.Price.Decimal()
}

// Clone returns a deep copy so a stored snapshot never aliases the caller's value.
func (p Product) Clone() Product {
	if p.Stock != nil {
		stock := *p.Stock
		p.Stock = &stock
	}
	if p.Extra != nil {
		extra := make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = append(json.RawMessage(nil), v...)
		}
		p.Extra = extra
	}
	return p
}
