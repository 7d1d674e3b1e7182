package payload

import (
	"encoding/json"
	"fmt"
	"sort"
)

type Kind int

const (
	KindObject Kind = iota + 1
	KindArray
	KindString
	KindNumber
	// KindIdentifier accepts what AsString can turn into an id: a string or a number.
	KindIdentifier
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindIdentifier:
		return "string or number"
	default:
		return "unknown"
	}
}

// ExpectedFields lists the top-level fields of both shapes and the container
// type each must have when present.
var ExpectedFields = map[string]Kind{
	"id":              KindIdentifier,
	"status":          KindString,
	"revision":        KindString,
	"updatedAt":       KindString,
	"messageToSeller": KindString,
	"buyer":           KindObject,
	"marketplace":     KindObject,
	"summary":         KindObject,
	"delivery":        KindObject,
	"payment":         KindObject,
	"fulfillment":     KindObject,
	"invoice":         KindObject,
	"note":            KindObject,
	"checkoutForm":    KindObject,
	"seller":          KindObject,
	"lineItems":       KindArray,
	"surcharges":      KindArray,
	"discounts":       KindArray,
}

// StructureProblems reports present fields whose type differs from
// ExpectedFields. Null values are accepted. Results are sorted by field name.
func StructureProblems(doc map[string]any) []string {
	var fields []string
	for f := range ExpectedFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		v, ok := doc[f]
		if !ok || v == nil {
			continue
		}
		want := ExpectedFields[f]
		if got := kindOf(v); !accepts(want, got) {
			out = append(out, fmt.Sprintf("field %s: expected %s, got %s", f, want, got))
		}
	}
	if note, ok := doc["note"].(map[string]any); ok {
		if text, present := note["text"]; present && text != nil {
			if _, isStr := text.(string); !isStr {
				out = append(out, "field note.text: expected string")
			}
		}
	}
	return out
}

func kindOf(v any) Kind {
	switch v.(type) {
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	case string:
		return KindString
	case float64, int, int64, json.Number:
		return KindNumber
	default:
		return 0
	}
}

func accepts(want, got Kind) bool {
	if want == KindIdentifier {
		return got == KindString || got == KindNumber
	}
	return want == got
}
