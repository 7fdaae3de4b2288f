package cart

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

const quantityField = "quantity"

// Entry is one cart line: the product snapshot taken when it was first added plus
// the quantity. It persists as the snapshot's fields flattened alongside "quantity".
type Entry struct {
	catalog.Product
	Quantity int
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return e.Product.MarshalFlat(map[string]any{quantityField: e.Quantity})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var product catalog.Product
	reserved, err := product.UnmarshalFlat(data, quantityField)
	if err != nil {
		return err
	}
	raw, ok := reserved[quantityField]
	if !ok {
		return fmt.Errorf("cart entry %s: missing quantity", product.ID)
	}
	var qty int
	if err := json.Unmarshal(raw, &qty); err != nil {
		return fmt.Errorf("cart entry %s: quantity: %w", product.ID, err)
	}
	if qty < 1 {
		return fmt.Errorf("cart entry %s: quantity %d below 1", product.ID, qty)
	}
	if product.ID.IsZero() {
		return fmt.Errorf("cart entry: missing id")
	}
	*e = Entry{Product: product, Quantity: qty}
	return nil
}

// Subtotal is price times quantity; ok is false when the snapshot price cannot be parsed.
func (e Entry) Subtotal() (decimal.Decimal, bool) {
	price, ok := e.UnitPrice()
	if !ok {
		return decimal.Zero, false
	}
	return price.Mul(decimal.NewFromInt(int64(e.Quantity))), true
}
