package checkout

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// StockCheckInput describes a cart line checked against the stock captured in its
// product snapshot. A nil Stock means the snapshot carried no stock figure.
type StockCheckInput struct {
	ProductID   string
	ProductName string
	Stock       *int
	Quantity    int
}

// StockViolationDetail exposes the data returned to callers when a check fails.
type StockViolationDetail struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name,omitempty"`
	Available    int    `json:"available"`
	RequestedQty int    `json:"requested_qty"`
}

// StockViolations lists every line whose quantity exceeds its snapshot stock.
func StockViolations(items []StockCheckInput) []StockViolationDetail {
	var violations []StockViolationDetail
	for _, item := range items {
		if item.Stock == nil {
			continue
		}
		if item.Quantity > *item.Stock {
			violations = append(violations, StockViolationDetail{
				ProductID:    item.ProductID,
				ProductName:  item.ProductName,
				Available:    *item.Stock,
				RequestedQty: item.Quantity,
			})
		}
	}
	return violations
}

// ValidateStock reports the violations as a state conflict.
func ValidateStock(items []StockCheckInput) error {
	violations := StockViolations(items)
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("quantity exceeds stock for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
