// Package payload models the two upstream order document shapes.
//
// The event feed nests the order identity under checkoutForm
// ({"checkoutForm":{"id","revision"},"buyer":...}); the bulk listing and the
// detail endpoint return the checkout form itself with "id" and "revision" at
// the root. Detect classifies a document once so that validation, merging and
// persistence never probe both layouts.
package payload

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeEventFeed
	ShapeBulkFeed
)

func (s Shape) String() string {
	switch s {
	case ShapeEventFeed:
		return "event_feed"
	case ShapeBulkFeed:
		return "bulk_feed"
	default:
		return "unknown"
	}
}

// Order is a shape-tagged order document.
type Order struct {
	Shape Shape
	Doc   map[string]any
}

// Detect tags doc with its shape. A document with a checkoutForm object is an
// event-feed order; anything else is treated as a bulk/detail order.
func Detect(doc map[string]any) Order {
	if doc == nil {
		return Order{Shape: ShapeUnknown}
	}
	if _, ok := doc["checkoutForm"].(map[string]any); ok {
		return Order{Shape: ShapeEventFeed, Doc: doc}
	}
	return Order{Shape: ShapeBulkFeed, Doc: doc}
}

// Decode parses raw JSON into a tagged order.
func Decode(raw []byte) (Order, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Order{}, fmt.Errorf("decode order payload: %w", err)
	}
	return Detect(doc), nil
}

// IDField names the field that carries the order id for this shape.
func (o Order) IDField() string {
	if o.Shape == ShapeEventFeed {
		return "checkoutForm.id"
	}
	return "id"
}

func (o Order) ID() (string, bool) {
	var v any
	switch o.Shape {
	case ShapeEventFeed:
		v = Lookup(o.Doc, "checkoutForm", "id")
	case ShapeBulkFeed:
		v = o.Doc["id"]
	}
	s := AsString(v)
	return s, s != ""
}

func (o Order) Revision() string {
	switch o.Shape {
	case ShapeEventFeed:
		return AsString(Lookup(o.Doc, "checkoutForm", "revision"))
	case ShapeBulkFeed:
		return AsString(o.Doc["revision"])
	}
	return ""
}

func (o Order) Buyer() map[string]any {
	b, _ := o.Doc["buyer"].(map[string]any)
	return b
}

func (o Order) LineItems() []any {
	items, _ := o.Doc["lineItems"].([]any)
	return items
}

func (o Order) Status() string {
	return AsString(o.Doc["status"])
}

// TotalToPay reads summary.totalToPay.amount.
func (o Order) TotalToPay() (decimal.Decimal, bool) {
	return AsDecimal(Lookup(o.Doc, "summary", "totalToPay", "amount"))
}

func (o Order) UpdatedAt() *time.Time {
	return ParseTime(o.Doc["updatedAt"])
}

// BoughtAt is lineItems[0].boughtAt.
func (o Order) BoughtAt() *time.Time {
	items := o.LineItems()
	if len(items) == 0 {
		return nil
	}
	first, _ := items[0].(map[string]any)
	return ParseTime(first["boughtAt"])
}

// Clone returns a deep copy of the document.
func (o Order) Clone() Order {
	return Order{Shape: o.Shape, Doc: cloneMap(o.Doc)}
}

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Doc)
}

// Lookup walks nested objects and returns nil when any step is missing.
func Lookup(doc map[string]any, path ...string) any {
	var cur any = doc
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	return cur
}

func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func AsDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// ParseTime accepts RFC 3339 strings (with or without fractional seconds).
func ParseTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return t
	}
}
