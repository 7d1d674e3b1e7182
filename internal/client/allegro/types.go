package allegro

import (
	"encoding/json"
	"time"

	"orderbackup/internal/payload"
)

// Event is one entry of the order event feed. Raw keeps the full upstream
// document for the audit log.
type Event struct {
	ID          string
	Type        string
	OccurredAt  *time.Time
	PublishedAt *time.Time
	Order       map[string]any
	Raw         map[string]any
}

type LatestEvent struct {
	ID         string `json:"id"`
	OccurredAt string `json:"occurredAt"`
}

type DateRangeParams struct {
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

func parseEvents(body []byte) ([]Event, error) {
	var resp struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DecodeError{What: "order events", Err: err}
	}
	out := make([]Event, 0, len(resp.Events))
	for _, raw := range resp.Events {
		out = append(out, EventFromMap(raw))
	}
	return out, nil
}

// EventFromMap builds an Event from a decoded upstream event document.
func EventFromMap(raw map[string]any) Event {
	ev := Event{
		ID:          payload.AsString(raw["id"]),
		Type:        payload.AsString(raw["type"]),
		OccurredAt:  payload.ParseTime(raw["occurredAt"]),
		PublishedAt: payload.ParseTime(raw["publishedAt"]),
		Raw:         raw,
	}
	if order, ok := raw["order"].(map[string]any); ok {
		ev.Order = order
	}
	return ev
}

// OrderID resolves the natural order id, preferring the checkout form id.
func (e Event) OrderID() string {
	if e.Order != nil {
		if id := payload.AsString(payload.Lookup(e.Order, "checkoutForm", "id")); id != "" {
			return id
		}
		if id := payload.AsString(e.Order["id"]); id != "" {
			return id
		}
	}
	for _, key := range []string{"orderId", "order_id"} {
		if id := payload.AsString(e.Raw[key]); id != "" {
			return id
		}
	}
	if e.Order != nil {
		for _, key := range []string{"orderId", "checkoutFormId"} {
			if id := payload.AsString(e.Order[key]); id != "" {
				return id
			}
		}
	}
	return ""
}

// Revision is the checkout form revision carried by the event, or "" when absent.
func (e Event) Revision() string {
	if e.Order == nil {
		return ""
	}
	return payload.AsString(payload.Lookup(e.Order, "checkoutForm", "revision"))
}
