package viewhistory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/internal/catalog"
)

const viewedAtField = "viewedAt"

// timestampLayout matches ISO-8601 with millisecond precision in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is a product snapshot plus the moment it was last viewed. It persists as the
// snapshot's fields flattened alongside "viewedAt".
type Entry struct {
	catalog.Product
	ViewedAt time.Time
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return e.Product.MarshalFlat(map[string]any{
		viewedAtField: e.ViewedAt.UTC().Format(timestampLayout),
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var product catalog.Product
	reserved, err := product.UnmarshalFlat(data, viewedAtField)
	if err != nil {
		return err
	}
	if product.ID.IsZero() {
		return fmt.Errorf("history entry: missing id")
	}
	raw, ok := reserved[viewedAtField]
	if !ok {
		return fmt.Errorf("history entry %s: missing viewedAt", product.ID)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return fmt.Errorf("history entry %s: viewedAt: %w", product.ID, err)
	}
	viewedAt, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return fmt.Errorf("history entry %s: viewedAt: %w", product.ID, err)
	}
	*e = Entry{Product: product, ViewedAt: viewedAt.UTC()}
	return nil
}

// Age renders how long ago the entry was viewed: "just now", minutes, hours, days
// for the last week, then the calendar date.
func (e Entry) Age(now time.Time) string {
	diff := now.Sub(e.ViewedAt)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff/time.Hour), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff/(24*time.Hour)), "day")
	default:
		return e.ViewedAt.In(now.Location()).Format("2 Jan 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
